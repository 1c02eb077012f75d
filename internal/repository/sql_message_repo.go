package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"guestbook/internal/domain"
)

// SQLMessageRepository implementa MessageRepository sobre database/sql.
// Lo usan los drivers mysql y sqlite.
type SQLMessageRepository struct {
	db *sql.DB
	q  messageQueries
}

func NewSQLMessageRepository(db *sql.DB) *SQLMessageRepository {
	return &SQLMessageRepository{db: db, q: newMessageQueries(squirrel.Question)}
}

func (r *SQLMessageRepository) Create(ctx context.Context, name, message string) (int64, error) {
	query, args, err := r.q.insert(name, message).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLMessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	query, args, err := r.q.byID(id).ToSql()
	if err != nil {
		return domain.Message{}, fmt.Errorf("build select: %w", err)
	}

	var row sqlMessageRow
	if err := sqlscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return domain.Message{}, ErrMessageNotFound
		}
		return domain.Message{}, err
	}
	return row.toDomain(), nil
}

func (r *SQLMessageRepository) List(ctx context.Context) ([]domain.Message, error) {
	query, args, err := r.q.list().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []sqlMessageRow
	if err := sqlscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toDomain())
	}
	return messages, nil
}

func (r *SQLMessageRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := r.q.count().ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type sqlMessageRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Message   string `db:"message"`
	CreatedAt dbTime `db:"created_at"`
}

func (r sqlMessageRow) toDomain() domain.Message {
	return domain.Message{
		ID:        r.ID,
		Name:      r.Name,
		Message:   r.Message,
		CreatedAt: r.CreatedAt.Time,
	}
}

// dbTime acepta timestamps como time.Time (mysql con parseTime) o como texto
// (sqlite guarda CURRENT_TIMESTAMP como cadena).
type dbTime struct {
	time.Time
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format %q", s)
}
