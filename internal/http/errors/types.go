package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/handshake/internal/adapter"
)

// AppError define la estructura estándar para errores de la aplicación
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando el original.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa).
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrUserCancelled = &AppError{
		Code:       "USER_CANCELLED",
		Message:    "El usuario canceló la autenticación en el proveedor.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidAssertion = &AppError{
		Code:       "INVALID_ASSERTION",
		Message:    "El proveedor rechazó o no firmó la aserción de autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrProviderNotFound = &AppError{
		Code:       "PROVIDER_NOT_FOUND",
		Message:    "El proveedor solicitado no está configurado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrProfileNotFound = &AppError{
		Code:       "PROFILE_NOT_FOUND",
		Message:    "No hay un perfil autenticado para este proveedor.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUpstreamUnavailable = &AppError{
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    "El proveedor de identidad no respondió correctamente.",
		HTTPStatus: http.StatusBadGateway,
	}

	ErrProviderMisconfigured = &AppError{
		Code:       "PROVIDER_MISCONFIGURED",
		Message:    "La configuración del proveedor es inválida.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// FromAdapter traduce los errores sentinela de la capa adapter a AppError.
func FromAdapter(err error) *AppError {
	switch {
	case errors.Is(err, adapter.ErrUserCancelled):
		return ErrUserCancelled.WithCause(err)
	case errors.Is(err, adapter.ErrInvalidAssertion):
		return ErrInvalidAssertion.WithCause(err)
	case errors.Is(err, adapter.ErrTransport):
		return ErrUpstreamUnavailable.WithCause(err)
	case errors.Is(err, adapter.ErrProfileUnavailable):
		return ErrProfileNotFound.WithCause(err)
	case errors.Is(err, adapter.ErrConfiguration):
		return ErrProviderMisconfigured.WithCause(err)
	default:
		return ErrInternalServerError.WithCause(err)
	}
}
