package db

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"guestbook/internal/config"
)

// State es la etapa del ciclo de vida del pool.
type State int

const (
	StateUninitialized State = iota
	StateDegraded
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDegraded:
		return "degraded"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

const defaultPingTimeout = 5 * time.Second

type snapshot struct {
	state   State
	backend Backend
	err     error
}

// Manager es el dueño del unico pool del proceso. Pool y State leen una
// foto atomica, asi nunca esperan a un Initialize en curso.
type Manager struct {
	cfg    config.DatabaseConfig
	logger *zap.Logger
	open   Opener

	// lifecycle serializa Initialize y Shutdown.
	lifecycle sync.Mutex
	current   atomic.Pointer[snapshot]
}

// Option ajusta un Manager en su construccion.
type Option func(*Manager)

// WithOpener reemplaza la fabrica de backends (tests).
func WithOpener(open Opener) Option {
	return func(m *Manager) {
		if open != nil {
			m.open = open
		}
	}
}

func NewManager(cfg config.DatabaseConfig, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{cfg: cfg, logger: logger, open: OpenBackend}
	for _, opt := range opts {
		opt(m)
	}
	m.current.Store(&snapshot{state: StateUninitialized})
	return m
}

// Initialize abre el pool, verifica con ping y crea el schema. Sin host
// configurado deja el Manager en modo degradado y devuelve nil. Si algo
// falla devuelve *InitError y el Manager queda en StateFailed sin pool.
func (m *Manager) Initialize(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.current.Load().state == StateReady {
		return nil
	}

	log := m.logger.With(zap.String("driver", m.cfg.Driver))
	if !m.cfg.Configured() {
		log.Warn("database not configured, running in degraded mode")
		m.current.Store(&snapshot{state: StateDegraded})
		return nil
	}

	backend, err := m.open(ctx, m.cfg)
	if err != nil {
		return m.fail(log, StageConnect, err, nil)
	}

	pingCtx, cancel := context.WithTimeout(ctx, m.pingTimeout())
	err = backend.Ping(pingCtx)
	cancel()
	if err != nil {
		return m.fail(log, StagePing, err, backend)
	}

	if err := backend.EnsureSchema(ctx); err != nil {
		return m.fail(log, StageSchema, err, backend)
	}

	m.current.Store(&snapshot{state: StateReady, backend: backend})
	log.Info("database ready",
		zap.String("address", m.address()),
		zap.String("database", m.cfg.Name),
		zap.Int("max_conns", m.cfg.MaxConns),
	)
	return nil
}

func (m *Manager) fail(log *zap.Logger, stage string, err error, backend Backend) error {
	if backend != nil {
		backend.Close()
	}
	initErr := &InitError{Stage: stage, Driver: m.cfg.Driver, Err: err}
	m.current.Store(&snapshot{state: StateFailed, err: initErr})
	log.Error("database init failed", zap.String("stage", stage), zap.Error(err))
	return initErr
}

func (m *Manager) pingTimeout() time.Duration {
	if m.cfg.PingTimeout > 0 {
		return m.cfg.PingTimeout
	}
	return defaultPingTimeout
}

func (m *Manager) address() string {
	if m.cfg.Driver == config.DriverSQLite {
		return m.cfg.Path
	}
	return m.cfg.Address()
}

// EnsureSchema crea la tabla messages y su indice si faltan.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	backend, ok := m.Pool()
	if !ok {
		return ErrUnavailable
	}
	return backend.EnsureSchema(ctx)
}

// Pool devuelve el backend vivo, o false si no hay pool.
func (m *Manager) Pool() (Backend, bool) {
	snap := m.current.Load()
	if snap.state != StateReady || snap.backend == nil {
		return nil, false
	}
	return snap.backend, true
}

// State devuelve la etapa actual y el ultimo error de inicializacion.
func (m *Manager) State() (State, error) {
	snap := m.current.Load()
	return snap.state, snap.err
}

// HealthCheck hace ping al pool con el timeout configurado.
func (m *Manager) HealthCheck(ctx context.Context) error {
	backend, ok := m.Pool()
	if !ok {
		return ErrUnavailable
	}
	pingCtx, cancel := context.WithTimeout(ctx, m.pingTimeout())
	defer cancel()
	return backend.Ping(pingCtx)
}

// Stats devuelve las estadisticas del pool, o ceros si no hay pool.
func (m *Manager) Stats() PoolStats {
	backend, ok := m.Pool()
	if !ok {
		return PoolStats{}
	}
	return backend.Stats()
}

// Shutdown cierra el pool y vuelve a StateUninitialized. Se puede llamar
// varias veces.
func (m *Manager) Shutdown() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	prev := m.current.Swap(&snapshot{state: StateUninitialized})
	if prev.backend == nil {
		return
	}
	prev.backend.Close()
	m.logger.Info("database connection pool closed", zap.String("driver", prev.backend.Driver()))
}

// IsInitError indica si err viene de Initialize.
func IsInitError(err error) bool {
	var initErr *InitError
	return errors.As(err, &initErr)
}
