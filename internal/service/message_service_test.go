package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"guestbook/internal/config"
	"guestbook/internal/db"
	"guestbook/internal/domain"
	"guestbook/internal/repository"
)

type mockMessageRepo struct {
	nextID     int64
	stored     map[int64]domain.Message
	created    int
	createErr  error
	getErr     error
	listData   []domain.Message
	listErr    error
	countN     int64
	countErr   error
	countCalls int
	// afterCount corre despues de leer el total, simulando un insert
	// concurrente.
	afterCount func()
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{stored: make(map[int64]domain.Message)}
}

func (m *mockMessageRepo) Create(_ context.Context, name, message string) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.nextID++
	m.created++
	m.stored[m.nextID] = domain.Message{ID: m.nextID, Name: name, Message: message, CreatedAt: time.Now().UTC()}
	return m.nextID, nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id int64) (domain.Message, error) {
	if m.getErr != nil {
		return domain.Message{}, m.getErr
	}
	msg, ok := m.stored[id]
	if !ok {
		return domain.Message{}, repository.ErrMessageNotFound
	}
	return msg, nil
}

func (m *mockMessageRepo) List(context.Context) ([]domain.Message, error) {
	return m.listData, m.listErr
}

func (m *mockMessageRepo) Count(context.Context) (int64, error) {
	m.countCalls++
	n, err := m.countN, m.countErr
	if hook := m.afterCount; hook != nil {
		m.afterCount = nil
		hook()
	}
	return n, err
}

type stubBackend struct {
	repo repository.MessageRepository
}

func (b *stubBackend) Driver() string                         { return "stub" }
func (b *stubBackend) Ping(context.Context) error             { return nil }
func (b *stubBackend) EnsureSchema(context.Context) error     { return nil }
func (b *stubBackend) Messages() repository.MessageRepository { return b.repo }
func (b *stubBackend) Stats() db.PoolStats                    { return db.PoolStats{} }
func (b *stubBackend) Close()                                 {}

type stubProvider struct {
	backend db.Backend
}

func (p stubProvider) Pool() (db.Backend, bool) {
	return p.backend, p.backend != nil
}

func newServiceWithRepo(repo repository.MessageRepository, cache CountCache) *MessageService {
	return NewMessageService(zap.NewNop(), stubProvider{backend: &stubBackend{repo: repo}}, cache, time.Second)
}

func TestSubmitMessage_TrimsAndReadsBack(t *testing.T) {
	repo := newMockMessageRepo()
	svc := newServiceWithRepo(repo, nil)

	msg, err := svc.SubmitMessage(context.Background(), "  Ana ", "\thola mundo \n")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg.ID != 1 || msg.Name != "Ana" || msg.Message != "hola mundo" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.CreatedAt.IsZero() {
		t.Fatalf("expected created_at from the stored row")
	}
}

func TestSubmitMessage_Validation(t *testing.T) {
	cases := []struct {
		name    string
		author  string
		message string
		field   string
	}{
		{name: "empty name", author: "", message: "hola", field: "name"},
		{name: "blank name", author: "   ", message: "hola", field: "name"},
		{name: "empty message", author: "Ana", message: "", field: "message"},
		{name: "blank message", author: "Ana", message: " \t\n", field: "message"},
		{name: "name too long", author: strings.Repeat("n", 256), message: "hola", field: "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockMessageRepo()
			svc := newServiceWithRepo(repo, nil)

			_, err := svc.SubmitMessage(context.Background(), tc.author, tc.message)

			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %q, got %v", tc.field, err)
			}
			if repo.created != 0 {
				t.Fatalf("expected nothing persisted, got %d rows", repo.created)
			}
		})
	}
}

func TestSubmitMessage_NameLengthCountsCharacters(t *testing.T) {
	repo := newMockMessageRepo()
	svc := newServiceWithRepo(repo, nil)

	name := strings.Repeat("ñ", domain.MaxNameLength)
	msg, err := svc.SubmitMessage(context.Background(), "  "+name+"  ", "hola")
	if err != nil {
		t.Fatalf("expected 255 multibyte characters to pass, got %v", err)
	}
	if msg.Name != name {
		t.Fatalf("expected trimmed name")
	}
}

func TestSubmitMessage_Unavailable(t *testing.T) {
	svc := NewMessageService(zap.NewNop(), stubProvider{}, nil, time.Second)

	_, err := svc.SubmitMessage(context.Background(), "Ana", "hola")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unavailable must not look like a validation error")
	}
}

func TestSubmitMessage_ValidationBeforeAvailability(t *testing.T) {
	svc := NewMessageService(zap.NewNop(), stubProvider{}, nil, time.Second)

	_, err := svc.SubmitMessage(context.Background(), "", "hola")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitMessage_PersistenceErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")

	insertRepo := newMockMessageRepo()
	insertRepo.createErr = cause
	_, err := newServiceWithRepo(insertRepo, nil).SubmitMessage(context.Background(), "Ana", "hola")
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "insert" || !errors.Is(err, cause) {
		t.Fatalf("expected insert PersistenceError wrapping cause, got %v", err)
	}

	readRepo := newMockMessageRepo()
	readRepo.getErr = cause
	_, err = newServiceWithRepo(readRepo, nil).SubmitMessage(context.Background(), "Ana", "hola")
	if !errors.As(err, &pe) || pe.Op != "read back" {
		t.Fatalf("expected read back PersistenceError, got %v", err)
	}
}

func TestListAndCount_Degraded(t *testing.T) {
	var nilSvc *MessageService
	for _, svc := range []*MessageService{
		NewMessageService(zap.NewNop(), stubProvider{}, nil, time.Second),
		NewMessageService(nil, nil, nil, 0),
		nilSvc,
	} {
		list, err := svc.ListMessages(context.Background())
		if err != nil || list == nil || len(list) != 0 {
			t.Fatalf("expected empty non-nil list, got %v %v", list, err)
		}
		n, err := svc.CountMessages(context.Background())
		if err != nil || n != 0 {
			t.Fatalf("expected 0 count, got %d %v", n, err)
		}
	}
}

func TestListMessages_NilFromRepoBecomesEmpty(t *testing.T) {
	repo := newMockMessageRepo()
	svc := newServiceWithRepo(repo, nil)

	list, err := svc.ListMessages(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if list == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestListAndCount_PersistenceErrors(t *testing.T) {
	repo := newMockMessageRepo()
	repo.listErr = errors.New("boom")
	repo.countErr = errors.New("boom")
	svc := newServiceWithRepo(repo, nil)

	var pe *PersistenceError
	if _, err := svc.ListMessages(context.Background()); !errors.As(err, &pe) || pe.Op != "list" {
		t.Fatalf("expected list PersistenceError, got %v", err)
	}
	if _, err := svc.CountMessages(context.Background()); !errors.As(err, &pe) || pe.Op != "count" {
		t.Fatalf("expected count PersistenceError, got %v", err)
	}
}

func newSQLiteService(t *testing.T) (*MessageService, *db.Manager) {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:      config.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "guestbook.db"),
		MaxConns:    10,
		PingTimeout: 5 * time.Second,
	}
	manager := db.NewManager(cfg, zap.NewNop())
	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize sqlite: %v", err)
	}
	t.Cleanup(manager.Shutdown)
	return NewMessageService(zap.NewNop(), manager, nil, 5*time.Second), manager
}

func TestMessageService_SQLiteRoundTrip(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	before := time.Now().UTC().Truncate(time.Second)

	stored, err := svc.SubmitMessage(ctx, " Ana ", " hola ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	list, err := svc.ListMessages(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 message, got %d", len(list))
	}
	got := list[0]
	if got.ID != stored.ID || got.Name != "Ana" || got.Message != "hola" {
		t.Fatalf("unexpected listed message %+v", got)
	}
	if got.CreatedAt.Before(before) {
		t.Fatalf("created_at %v is before call time %v", got.CreatedAt, before)
	}
	if !got.CreatedAt.Equal(stored.CreatedAt) {
		t.Fatalf("expected submit to return stored created_at, got %v vs %v", stored.CreatedAt, got.CreatedAt)
	}
}

func TestMessageService_SQLiteOrderingAndCount(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	n, err := svc.CountMessages(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected empty table, got %d %v", n, err)
	}

	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.SubmitMessage(ctx, name, "mensaje "+name); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
	}
	if _, err := svc.SubmitMessage(ctx, "  ", "rechazado"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}

	list, err := svc.ListMessages(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, m := range list {
		names = append(names, m.Name)
	}
	if strings.Join(names, ",") != "C,B,A" {
		t.Fatalf("expected C,B,A, got %v", names)
	}

	n, err = svc.CountMessages(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected count 3, got %d %v", n, err)
	}
}

func TestMessageService_AfterShutdown(t *testing.T) {
	svc, manager := newSQLiteService(t)
	ctx := context.Background()
	if _, err := svc.SubmitMessage(ctx, "Ana", "hola"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	manager.Shutdown()

	if _, err := svc.SubmitMessage(ctx, "Ana", "hola"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after shutdown, got %v", err)
	}
	if n, err := svc.CountMessages(ctx); err != nil || n != 0 {
		t.Fatalf("expected degraded count after shutdown, got %d %v", n, err)
	}
}
