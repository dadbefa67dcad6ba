package engine

import (
	"errors"
	"fmt"

	"airstrip/internal/domain"
	"airstrip/internal/kv"
	"airstrip/internal/repo"
	"airstrip/internal/validate"
)

// Failure kinds. Every error returned by an Engine operation matches at most
// one of them under errors.Is.
var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = repo.ErrNotFound
	ErrConflict       = errors.New("conflict")
	// ErrFatal means identifier persistence failed. The operation was aborted
	// and nothing was written.
	ErrFatal = errors.New("fatal storage fault")
)

// Error is a caller-facing failure of a given kind.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Message converts the failure into its wire form.
func (e *Error) Message() domain.Message {
	kind := domain.MessageError
	switch e.Kind {
	case ErrInvalidPayload:
		kind = domain.MessageInvalidPayload
	case ErrNotFound:
		kind = domain.MessageNotFound
	}
	return domain.Message{Kind: kind, Message: e.Msg}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidPayload, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

// orNotFound turns a missing record into a caller-facing NotFound.
func orNotFound(err error, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(what)
	}
	return err
}

func conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

// checkPayload runs the struct rules and reports the first failure.
func checkPayload(p any) error {
	return asInvalid(validate.Struct(p))
}

func checkText(value, field string) error {
	return asInvalid(validate.RequiredText(value, field))
}

func asInvalid(err error) error {
	if err == nil {
		return nil
	}
	var verr *validate.Error
	if errors.As(err, &verr) {
		return &Error{Kind: ErrInvalidPayload, Msg: verr.Message, Err: err}
	}
	return fmt.Errorf("validate payload: %w", err)
}

// classify maps lower layer failures onto the engine's kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, repo.ErrCounterFault) {
		return &Error{Kind: ErrFatal, Msg: "identifier allocation failed", Err: err}
	}
	if errors.Is(err, kv.ErrConflict) {
		return &Error{Kind: ErrConflict, Msg: "Store is busy with concurrent updates, try again", Err: err}
	}
	return err
}

// IsFatal reports whether err aborted the operation because identifiers
// could not be persisted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
