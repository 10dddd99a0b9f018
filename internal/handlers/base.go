// Package handlers holds the HTTP surface of the resolution service.
// Handlers are constructor injected and register themselves on an echo
// group.
package handlers

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// caseID extracts the case id path parameter
func caseID(c echo.Context) (string, error) {
	id := c.Param("case_id")
	if id == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "case_id is required")
	}
	return id, nil
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}
