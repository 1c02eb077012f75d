package repository

import "github.com/Masterminds/squirrel"

const messagesTable = "messages"

var messageColumns = []string{"id", "name", "message", "created_at"}

// messageQueries arma las sentencias de mensajes con el placeholder del dialecto.
type messageQueries struct {
	sb squirrel.StatementBuilderType
}

func newMessageQueries(format squirrel.PlaceholderFormat) messageQueries {
	return messageQueries{sb: squirrel.StatementBuilder.PlaceholderFormat(format)}
}

func (q messageQueries) insert(name, message string) squirrel.InsertBuilder {
	return q.sb.Insert(messagesTable).
		Columns("name", "message").
		Values(name, message)
}

func (q messageQueries) byID(id int64) squirrel.SelectBuilder {
	return q.sb.Select(messageColumns...).
		From(messagesTable).
		Where(squirrel.Eq{"id": id})
}

// list ordena por created_at y desempata por id, porque dos inserts pueden
// compartir timestamp.
func (q messageQueries) list() squirrel.SelectBuilder {
	return q.sb.Select(messageColumns...).
		From(messagesTable).
		OrderBy("created_at DESC", "id DESC")
}

func (q messageQueries) count() squirrel.SelectBuilder {
	return q.sb.Select("COUNT(*)").From(messagesTable)
}
