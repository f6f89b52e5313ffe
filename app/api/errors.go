package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pulse/rebuild"
	"pulse/types"
)

// ErrorHandler maps domain errors onto HTTP responses. Backend outages
// become a clean 503, never a stack trace or a partial answer.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var genErr *types.GenerationError
	if errors.As(err, &genErr) {
		slog.Error("generation backend failed", "kind", string(genErr.Kind), "error", genErr.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrServiceUnavailable())
	}
	if errors.Is(err, rebuild.ErrRebuildInProgress) {
		return c.Status(fiber.StatusConflict).JSON(NewError(fiber.StatusConflict, err.Error()))
	}
	var rebErr *types.RebuildError
	if errors.As(err, &rebErr) {
		slog.Error("rebuild failed", "kind", string(rebErr.Kind), "error", rebErr.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(NewError(fiber.StatusInternalServerError, rebErr.Error()))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	slog.Error("request failed", "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(NewError(fiber.StatusInternalServerError, "internal error"))
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrUnAuthorized(msg string) Error {
	return Error{
		Code:    fiber.StatusUnauthorized,
		Message: msg,
	}
}

func ErrForbidden(msg string) Error {
	return Error{
		Code:    fiber.StatusForbidden,
		Message: msg,
	}
}

func ErrServiceUnavailable() Error {
	return Error{
		Code:    fiber.StatusServiceUnavailable,
		Message: "service temporarily unavailable",
	}
}
