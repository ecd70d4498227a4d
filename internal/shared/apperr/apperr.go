package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	Invalid     Kind = "invalid"
	NotFound    Kind = "not_found"
	Conflict    Kind = "conflict"
	Unavailable Kind = "unavailable"
	Internal    Kind = "internal"
)

const genericMessage = "An unexpected error occurred."

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithCode sets the machine readable code returned to API clients.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// Constructors (PublicMsg kısa ve güvenli olmalı)
func InvalidErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Invalid, PublicMsg: publicMsg, Fields: fields}
}
func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}
func ConflictErr(publicMsg string) *AppError {
	return &AppError{Kind: Conflict, PublicMsg: publicMsg}
}

// UnavailableErr reports a dependency (gateway, state backend) that cannot serve right now.
func UnavailableErr(publicMsg string, err error) *AppError {
	return &AppError{Kind: Unavailable, PublicMsg: publicMsg, Err: err}
}

// Wrap: internal hatayı public mesaj olmadan sar (default 500)
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: Internal, PublicMsg: genericMessage, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Invalid:
			return http.StatusBadRequest
		case NotFound:
			return http.StatusNotFound
		case Conflict:
			return http.StatusConflict
		case Unavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return genericMessage
}

// Code returns the error code for API clients, "error" when none was set.
func Code(err error) string {
	if ae, ok := As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return "error"
}
