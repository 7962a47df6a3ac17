package helpers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/mcgate/internal/http/errors"
)

// MaxBodyBytes limita los bodies de los endpoints de auth.
const MaxBodyBytes = 64 << 10

var validate = newValidator()

// newValidator reporta los campos por su nombre JSON.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ReadBody decodifica JSON o application/x-www-form-urlencoded en v y lo valida
// con los tags `validate`. Los campos de form se mapean por su nombre JSON.
// Devuelve false si ya escribió el error HTTP.
func ReadBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := decodeForm(r, v); err != nil {
			writeDecodeError(w, err)
			return false
		}
	default:
		// sin Content-Type se asume JSON, como el cliente oficial
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(v); err != nil && err != io.EOF {
			writeDecodeError(w, err)
			return false
		}
	}

	if err := validate.Struct(v); err != nil {
		errors.WriteError(w, errors.ErrInvalidRequest.WithDetail(describe(err)))
		return false
	}
	return true
}

func decodeForm(r *http.Request, v any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	m := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		m[k] = strings.TrimSpace(r.PostForm.Get(k))
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		errors.WriteError(w, errors.ErrBodyTooLarge)
		return
	}
	errors.WriteError(w, errors.ErrInvalidRequest.WithDetail("body is not valid JSON or form data"))
}

// describe arma un detalle legible a partir de los errores del validator.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, name+" is required")
		case "oneof":
			parts = append(parts, name+" must be one of: "+fe.Param())
		default:
			parts = append(parts, name+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
