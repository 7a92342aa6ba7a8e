// Package httperrors defines the public HTTP error envelope returned by
// every API endpoint.
package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// HTTPError is the public error payload. Internal detail never leaks into
// the response body; it is logged server-side only.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`

	Internal error `json:"-"`
}

// NewHTTPError creates a public HTTP error.
func NewHTTPError(code int, errType, title string) *HTTPError {
	return &HTTPError{Code: code, Type: errType, Title: title}
}

// WithInternal attaches the underlying cause for server-side logging.
func (e *HTTPError) WithInternal(err error) *HTTPError {
	e.Internal = err
	return e
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

// HTTPErrorHandler renders HTTPError and echo.HTTPError values as the
// public envelope and downgrades everything else to an opaque 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *HTTPError
	switch e := err.(type) {
	case *HTTPError:
		httpErr = e
	case *echo.HTTPError:
		httpErr = NewHTTPError(e.Code, "generic", fmt.Sprintf("%v", e.Message))
		httpErr.Internal = e.Internal
	default:
		httpErr = NewHTTPError(http.StatusInternalServerError, "generic", "Internal server error")
		httpErr.Internal = err
	}

	if httpErr.Internal != nil {
		log.Error().Err(httpErr.Internal).Int("status", httpErr.Code).Str("path", c.Path()).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(httpErr.Code); err != nil {
			log.Warn().Err(err).Msg("failed to write error response")
		}
		return
	}

	if err := c.JSON(httpErr.Code, httpErr); err != nil {
		log.Warn().Err(err).Msg("failed to write error response")
	}
}
