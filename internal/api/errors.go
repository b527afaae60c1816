package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/mnistpng/pkg/idx"
)

var ErrInvalidIndex = errors.New("invalid_index")

type invalidIndexError struct {
	raw string
}

func (e invalidIndexError) Error() string {
	return "record index must be a non-negative integer, got " + `"` + e.raw + `"`
}

func (e invalidIndexError) Unwrap() error {
	return ErrInvalidIndex
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

// writeDecodeError maps cursor failures onto HTTP statuses.
func writeDecodeError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidIndex):
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
	case errors.Is(err, idx.ErrSeekOutOfRange):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error())
	case errors.Is(err, idx.ErrClosed):
		return writeError(c, http.StatusServiceUnavailable, "unavailable_error", err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "decode_error", err.Error())
	}
}
