package util

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/types"
)

// Validatable is implemented by request payloads that can validate
// themselves after binding.
type Validatable interface {
	Validate() error
}

// BindAndValidateBody binds the request body into v and runs its validation,
// translating failures into public 400 errors.
func BindAndValidateBody(c echo.Context, v Validatable) error {
	if err := c.Bind(v); err != nil {
		return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, "Failed to parse request body")
	}
	if err := v.Validate(); err != nil {
		return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, err.Error())
	}
	return nil
}

// ValidateAndReturn writes v as a JSON response with the given status code.
func ValidateAndReturn(c echo.Context, code int, v interface{}) error {
	return c.JSON(code, v)
}
