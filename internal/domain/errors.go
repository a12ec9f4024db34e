package domain

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies engine failures so callers can tell
// "retry won't help" from "data moved" from "wrong caller".
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindDomainViolation ErrorKind = "domain_violation"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

func Violation(format string, args ...any) *Error {
	return &Error{Kind: KindDomainViolation, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps each error kind to its response category.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindDomainViolation:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// KindOf extracts the kind from an error chain, or "" for unexpected errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
