// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

const maxRequestBody = 1 << 20

// DecodeJSON reads a bounded request body into dst, rejecting unknown
// fields so typos surface as 400s instead of silently-zeroed values.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, message string) {
	JSONError(w, BadRequestError(message))
}

func Unauthorized(w http.ResponseWriter, message string) {
	JSONError(w, UnauthorizedError(message))
}

func Forbidden(w http.ResponseWriter, message string) {
	JSONError(w, ForbiddenError(message))
}

func NotFound(w http.ResponseWriter, resource string) {
	JSONError(w, NotFoundError(resource))
}

func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteJSON(w, http.StatusInternalServerError, errorEnvelope{
		Error: errorBody{
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		},
	})
}

// JSONError writes an AppError (or anything wrapping one) as a structured
// error envelope. Bare sentinel errors fall back to a generic mapping so a
// handler can pass through repository errors unexamined.
func JSONError(w http.ResponseWriter, err error) {
	if appErr, ok := AsAppError(err); ok {
		WriteJSON(w, appErr.Status, errorEnvelope{
			Error: errorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Fields:  appErr.Fields,
			},
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		JSONError(w, NotFoundError("resource"))
	case errors.Is(err, ErrForbidden):
		JSONError(w, ForbiddenError(""))
	case errors.Is(err, ErrUnauthorized):
		JSONError(w, UnauthorizedError(""))
	case errors.Is(err, ErrTokenExpired):
		JSONError(w, TokenExpiredError())
	case errors.Is(err, ErrTokenRevoked):
		JSONError(w, TokenRevokedError())
	case errors.Is(err, ErrTokenInvalid):
		JSONError(w, TokenInvalidError())
	case errors.Is(err, ErrInvalidInput):
		JSONError(w, BadRequestError(err.Error()))
	default:
		InternalServerError(w, err)
	}
}
