package http

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/newsroom"
)

const internalErrorMessage = "Internal server error"

type appHandler func(w http.ResponseWriter, r *http.Request) error

// Error turns an appHandler into a http.HandlerFunc. Returned errors are
// written as {"error": message} with the status derived from their code.
func (s *Server) Error(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var httpErr *Error
		if !errors.As(err, &httpErr) {
			httpErr = fromDomainError(err)
		}

		logger := hlog.FromRequest(r)
		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("request failed")
			sentry.CaptureException(err)
		} else {
			logger.Warn().Err(err).Int("status", httpErr.Status).Msg("request rejected")
		}

		writeJSONResponse(w, httpErr.Status, httpErr)
	}
}

var statusByCode = map[string]int{
	newsroom.ErrInvalid:      http.StatusBadRequest,
	newsroom.ErrUnauthorized: http.StatusUnauthorized,
	newsroom.ErrForbidden:    http.StatusForbidden,
	newsroom.ErrNotFound:     http.StatusNotFound,
	newsroom.ErrConflict:     http.StatusConflict,
}

// fromDomainError maps a coded newsroom error onto a response. Anything
// internal or unknown becomes a 500 with no detail.
func fromDomainError(err error) *Error {
	status, ok := statusByCode[newsroom.ErrorCode(err)]
	if !ok {
		return NewError(err, http.StatusInternalServerError, internalErrorMessage)
	}
	return NewError(err, status, newsroom.ErrorMessage(err))
}

// Error is an error response rendered by the transport
type Error struct {
	Cause   error  `json:"-"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError returns an error response with the given status and client message
func NewError(err error, status int, message string) *Error {
	return &Error{
		Cause:   err,
		Message: message,
		Status:  status,
	}
}
