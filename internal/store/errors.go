package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Error kinds. Every error returned by the store for a caller mistake wraps
// exactly one of these and can be checked with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// ValidationError reports a field outside its allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InvalidPortError reports a port number outside [1, TotalPorts].
type InvalidPortError struct {
	Port       int
	TotalPorts int
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("port %d is invalid: this box only has %d ports", e.Port, e.TotalPorts)
}

func (e *InvalidPortError) Unwrap() error { return ErrInvalidInput }

// PortOccupiedError reports a port already bound to another connection.
// ContractID is empty when the clash was only detected by the database.
type PortOccupiedError struct {
	BoxID      string
	BoxName    string
	Port       int
	ContractID string
}

func (e *PortOccupiedError) Error() string {
	box := e.BoxName
	if box == "" {
		box = e.BoxID
	}
	if e.ContractID == "" {
		return fmt.Sprintf("port %d of box %s is already occupied", e.Port, box)
	}
	return fmt.Sprintf("port %d of box %s is already occupied by contract %s", e.Port, box, e.ContractID)
}

func (e *PortOccupiedError) Unwrap() error { return ErrConflict }

// DuplicateContractError reports a contract id already used by a connection.
type DuplicateContractError struct {
	ContractID string
}

func (e *DuplicateContractError) Error() string {
	return fmt.Sprintf("contract %s is already connected", e.ContractID)
}

func (e *DuplicateContractError) Unwrap() error { return ErrConflict }

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

// uniqueViolation reports whether err is a unique constraint violation and,
// when the driver exposes it, which constraint fired.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return liteErr.Error(), true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}

// translateConnectionWrite maps a unique violation raised while writing c to
// the matching conflict error. Other errors are returned unchanged.
func translateConnectionWrite(err error, c connectionRef) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if strings.Contains(constraint, "contract") {
		return &DuplicateContractError{ContractID: c.ContractID}
	}
	return &PortOccupiedError{BoxID: c.BoxID, BoxName: c.BoxName, Port: c.Port}
}

// connectionRef names the binding being written, for error messages.
type connectionRef struct {
	BoxID      string
	BoxName    string
	Port       int
	ContractID string
}
