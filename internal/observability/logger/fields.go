package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field es zap.Field.
type Field = zap.Field

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// DurationMs registra la duración en milisegundos.
func DurationMs(d time.Duration) zap.Field { return zap.Int64("duration_ms", d.Milliseconds()) }

// ---- Admisión ----

// ClientID es el client_id OAuth (nunca el secreto).
func ClientID(v string) zap.Field { return zap.String("client_id", v) }
func Category(v string) zap.Field { return zap.String("category", v) }
func Decision(v string) zap.Field { return zap.String("decision", v) }
func Reason(v string) zap.Field   { return zap.String("reason", v) }
func Scope(v string) zap.Field    { return zap.String("scope", v) }

// Family identifica el linaje de refresh tokens.
func Family(v string) zap.Field { return zap.String("family_id", v) }

// TokenRef registra un prefijo corto del token, nunca el valor completo.
func TokenRef(raw string) zap.Field {
	if len(raw) > 8 {
		raw = raw[:8]
	}
	return zap.String("token_ref", raw)
}

func RetryAfter(d time.Duration) zap.Field { return zap.Duration("retry_after", d) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ---- Genéricos ----

func Count(v int) zap.Field           { return zap.Int("count", v) }
func String(k, v string) zap.Field    { return zap.String(k, v) }
func Int(k string, v int) zap.Field   { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Any(k string, v any) zap.Field   { return zap.Any(k, v) }
