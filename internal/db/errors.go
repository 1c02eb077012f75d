package db

import (
	"errors"
	"fmt"
)

// ErrUnavailable indica que no hay pool vivo (modo degradado, fallo o apagado).
var ErrUnavailable = errors.New("database unavailable")

// Etapas de Initialize reportadas en InitError.
const (
	StageConnect = "connect"
	StagePing    = "ping"
	StageSchema  = "schema"
)

// InitError describe un arranque fallido de la base. El llamador decide si
// es fatal o si sigue en modo degradado.
type InitError struct {
	Stage  string
	Driver string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("database init (%s) failed at %s: %v", e.Driver, e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
