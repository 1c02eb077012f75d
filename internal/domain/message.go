package domain

import "time"

// MaxNameLength es el limite de caracteres del autor, igual al de la columna.
const MaxNameLength = 255

// Message es una entrada del libro de visitas.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
