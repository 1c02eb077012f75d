package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"guestbook/internal/db"
	"guestbook/internal/domain"
	"guestbook/internal/metrics"
	"guestbook/internal/repository"
)

const defaultQueryTimeout = 60 * time.Second

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable es el mismo centinela que db.ErrUnavailable.
	ErrUnavailable = db.ErrUnavailable
)

// ValidationError es un error del cliente: la entrada no cumple una regla.
// Nunca llega a la base.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// PersistenceError envuelve fallos de la base. La causa es solo para logs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s messages: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// PoolProvider es lo que el servicio necesita del db.Manager.
type PoolProvider interface {
	Pool() (db.Backend, bool)
}

// MessageService valida y ejecuta las operaciones del libro de visitas sobre
// el pool que el Manager reporte en cada llamada.
type MessageService struct {
	logger  *zap.Logger
	pools   PoolProvider
	cache   CountCache
	timeout time.Duration
}

func NewMessageService(logger *zap.Logger, pools PoolProvider, cache CountCache, queryTimeout time.Duration) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewNoopCountCache()
	}
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &MessageService{
		logger:  logger,
		pools:   pools,
		cache:   cache,
		timeout: queryTimeout,
	}
}

// ValidateMessage recorta los campos y aplica las reglas de entrada.
func ValidateMessage(name, message string) (string, string, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)

	if name == "" {
		return "", "", &ValidationError{Field: "name", Reason: "Name is required"}
	}
	if message == "" {
		return "", "", &ValidationError{Field: "message", Reason: "Message is required"}
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return "", "", &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("Name must be %d characters or less", domain.MaxNameLength),
		}
	}
	return name, message, nil
}

// SubmitMessage guarda el mensaje y devuelve la fila tal como quedo en la
// base, con el id y created_at que asigno el servidor.
func (s *MessageService) SubmitMessage(ctx context.Context, name, message string) (domain.Message, error) {
	name, message, err := ValidateMessage(name, message)
	if err != nil {
		metrics.MessagesSubmitted.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return domain.Message{}, err
	}

	repo, ok := s.messages()
	if !ok {
		metrics.MessagesSubmitted.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return domain.Message{}, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := repo.Create(ctx, name, message)
	if err != nil {
		metrics.MessagesSubmitted.WithLabelValues(metrics.OutcomeError).Inc()
		return domain.Message{}, &PersistenceError{Op: "insert", Err: err}
	}
	s.invalidateCount(ctx)

	stored, err := repo.GetByID(ctx, id)
	if err != nil {
		metrics.MessagesSubmitted.WithLabelValues(metrics.OutcomeError).Inc()
		return domain.Message{}, &PersistenceError{Op: "read back", Err: err}
	}

	metrics.MessagesSubmitted.WithLabelValues(metrics.OutcomeCreated).Inc()
	return stored, nil
}

// ListMessages devuelve todos los mensajes, el mas nuevo primero. Sin pool
// devuelve una lista vacia y sin error.
func (s *MessageService) ListMessages(ctx context.Context) ([]domain.Message, error) {
	repo, ok := s.messages()
	if !ok {
		return []domain.Message{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages, err := repo.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// CountMessages devuelve el total de mensajes, 0 sin pool.
func (s *MessageService) CountMessages(ctx context.Context) (int64, error) {
	repo, ok := s.messages()
	if !ok {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// La generacion se lee antes de contar; si un insert la avanza en el
	// medio, Set descarta el conteo viejo.
	cached, gen, hit, cacheErr := s.cache.Get(ctx)
	if cacheErr != nil {
		s.logger.Warn("count cache read failed", zap.Error(cacheErr))
	} else if hit {
		return cached, nil
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	if cacheErr == nil {
		if err := s.cache.Set(ctx, n, gen); err != nil {
			s.logger.Warn("count cache write failed", zap.Error(err))
		}
	}
	return n, nil
}

func (s *MessageService) messages() (repository.MessageRepository, bool) {
	if s == nil || s.pools == nil {
		return nil, false
	}
	backend, ok := s.pools.Pool()
	if !ok {
		return nil, false
	}
	repo := backend.Messages()
	return repo, repo != nil
}

func (s *MessageService) invalidateCount(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("count cache invalidate failed", zap.Error(err))
	}
}
