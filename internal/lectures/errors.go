package lectures

import "errors"

// Error kinds. Match with errors.Is.
var (
	ErrNotFound            = errors.New("lecture not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrActiveSessionExists = errors.New("active lecture already exists")
)

// Error is a domain failure carrying a client-facing detail message.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() error { return e.Kind }

func notFound(detail string) error { return &Error{Kind: ErrNotFound, Detail: detail} }

func invalidInput(detail string) error { return &Error{Kind: ErrInvalidInput, Detail: detail} }
