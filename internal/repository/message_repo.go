package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"guestbook/internal/domain"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository interface {
	Create(ctx context.Context, name, message string) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Message, error)
	List(ctx context.Context) ([]domain.Message, error)
	Count(ctx context.Context) (int64, error)
}

// PgxQuerier es el subconjunto de pgxpool.Pool que usa el repositorio,
// asi pgxmock puede reemplazarlo en tests.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgMessageRepository struct {
	db PgxQuerier
	q  messageQueries
}

func NewPgMessageRepository(db PgxQuerier) *PgMessageRepository {
	return &PgMessageRepository{db: db, q: newMessageQueries(squirrel.Dollar)}
}

func (r *PgMessageRepository) Create(ctx context.Context, name, message string) (int64, error) {
	query, args, err := r.q.insert(name, message).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	query, args, err := r.q.byID(id).ToSql()
	if err != nil {
		return domain.Message{}, fmt.Errorf("build select: %w", err)
	}

	var msg domain.Message
	if err := pgxscan.Get(ctx, r.db, &msg, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}

func (r *PgMessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	query, args, err := r.q.list().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	messages := []domain.Message{}
	if err := pgxscan.Select(ctx, r.db, &messages, query, args...); err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}
	return messages, nil
}

func (r *PgMessageRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := r.q.count().ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
