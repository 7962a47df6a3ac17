// Package errors mapea los errores de dominio a respuestas JSON
// {code, message, detail, errorcode, retry_after}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
)

// errorResponse controla exactamente qué campos se envían al cliente.
// errorcode repite el status HTTP, como la API emulada.
type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	ErrorCode  int    `json:"errorcode"`
	RetryAfter int64  `json:"retry_after,omitempty"`
}

// WriteError escribe la respuesta para err. Errores que no son *AppError
// pasan por FromDomain.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Detail:    appErr.Detail,
		ErrorCode: appErr.HTTPStatus,
	}
	if appErr.RetryAfter > 0 {
		secs := RetryAfterSeconds(appErr.RetryAfter.Seconds())
		resp.RetryAfter = secs
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// RetryAfterSeconds redondea hacia arriba; nunca devuelve menos de 1.
func RetryAfterSeconds(secs float64) int64 {
	n := int64(math.Ceil(secs))
	if n < 1 {
		n = 1
	}
	return n
}

// FromError devuelve el *AppError de la cadena de err o lo traduce.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return FromDomain(err)
}
