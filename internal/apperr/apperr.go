// Package apperr carries the structured error kinds that cross service
// boundaries and maps storage-level failures onto them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

type Kind int

const (
	// InvalidInput covers malformed or missing fields and bad id formats.
	InvalidInput Kind = iota
	// NotFound means a referenced post, comment or user is absent.
	NotFound
	// Forbidden means the caller is authenticated but not authorized.
	Forbidden
	// Unauthorized means no or invalid identity.
	Unauthorized
	// Conflict is a uniqueness violation (slug, username, email).
	Conflict
	// TransientStore marks a transaction abort or an environment that does
	// not support transactions. It triggers the fallback write path and is
	// never surfaced to callers.
	TransientStore
	// Unavailable means the store is unreachable.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Unauthorized:
		return "unauthorized"
	case Conflict:
		return "conflict"
	case TransientStore:
		return "transient_store"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, defaulting to Unavailable for anything
// that is not a structured error (an unreachable store is the common cause).
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Unavailable
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsTransient reports whether err should route the coordinator onto the
// fallback write path.
func IsTransient(err error) bool { return err != nil && Is(err, TransientStore) }

// HTTPStatus maps an error kind to its transport status. TransientStore has
// no mapping: it must be consumed before reaching a handler; if it leaks it
// is reported as a server error.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InvalidInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "server error"
}

// FromMongo classifies a driver error. Duplicate keys become Conflict;
// transaction aborts and transaction-unsupported topologies become
// TransientStore; everything else is Unavailable.
func FromMongo(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return Wrap(Conflict, "duplicate key", err)
	}
	if isTxnUnsupported(err) || hasLabel(err, "TransientTransactionError") || hasLabel(err, "UnknownTransactionCommitResult") {
		return Wrap(TransientStore, "transaction unavailable", err)
	}
	return Wrap(Unavailable, "store error", err)
}

func hasLabel(err error, label string) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(label)
}

// isTxnUnsupported matches the IllegalOperation a standalone mongod returns
// for the first write inside a session transaction.
func isTxnUnsupported(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if ce.Code == 20 { // IllegalOperation
			return true
		}
		if strings.Contains(ce.Message, "Transaction numbers") {
			return true
		}
	}
	return strings.Contains(err.Error(), "Transaction numbers")
}
