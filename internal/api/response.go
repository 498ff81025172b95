package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
)

const maxBodyBytes = 12 << 20 // room for a base64 photo

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, details ...string) {
	writeJSON(w, r, status, ErrorResponse{Message: msg, Errors: details})
}

// validationMessages turns validator errors into one readable line per
// failed field.
func validationMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", field, err.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s", field, err.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("field %s must be at most %s", field, err.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("field %s must contain exactly %s items", field, err.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("field %s must be greater than %s", field, err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return msgs
}

// decode reads a JSON body into dst and validates it. It writes the 400
// reply itself and reports whether the handler may continue.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		msg := "Invalid request body"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "Request body is required"
		case errors.As(err, &tooLarge):
			msg = "Request body is too large"
		}
		h.log.Debug("failed to decode request body",
			zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
		writeError(w, r, http.StatusBadRequest, msg)
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, r, http.StatusBadRequest, "Invalid input data", validationMessages(verrs)...)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "Invalid input data")
		return false
	}
	return true
}

var errorKinds = []struct {
	kind   error
	status int
}{
	{core.ErrInvalidInput, http.StatusBadRequest},
	{core.ErrUnauthorized, http.StatusUnauthorized},
	{core.ErrForbidden, http.StatusForbidden},
	{core.ErrNotFound, http.StatusNotFound},
	{core.ErrConflict, http.StatusConflict},
}

// publicMessage returns the part of err's text after the kind marker,
// which drops the internal op prefixes.
func publicMessage(err, kind error) string {
	s := err.Error()
	marker := kind.Error() + ": "
	if i := strings.Index(s, marker); i >= 0 {
		return s[i+len(marker):]
	}
	return kind.Error()
}

// fail maps a service error to its HTTP status. Unknown errors become a
// generic 500 and are logged; their text never reaches the client.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			writeError(w, r, k.status, publicMessage(err, k.kind))
			return
		}
	}
	h.log.Error("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "Internal server error")
}
