package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/mcgate/internal/audit"
	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/rate"
)

// maxPeekBytes es lo máximo que se lee del body para extraer client_id.
const maxPeekBytes = 4096

// RateLimitByClient limita endpoints sin bearer (token, refresh, revoke, verify).
// La clave es el client_id del body JSON o form solo si está registrado; si
// no, la IP de RemoteAddr. El body se repone intacto para el handler.
func (g *Gatekeeper) RateLimitByClient(category rate.Category) Middleware {
	return func(next http.Handler) http.Handler {
		if g.limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := g.rateKey(r)

			d := g.limiter.Allow(r.Context(), key, category)
			setRateHeaders(w, d, g.now())
			if !d.Allowed {
				g.deny(w, r, key, category, rateReason(d), rateError(d))
				return
			}
			metrics.AdmissionDecisions.WithLabelValues(string(category), audit.DecisionAllowed).Inc()
			next.ServeHTTP(w, r.WithContext(setCategory(r.Context(), category)))
		})
	}
}

// rateKey: un client_id inventado no abre un contador nuevo.
func (g *Gatekeeper) rateKey(r *http.Request) string {
	if id := extractClientID(r); id != "" && g.registry != nil {
		if _, err := g.registry.Lookup(id); err == nil {
			return id
		}
	}
	return "ip:" + clientIP(r)
}

// extractClientID lee hasta maxPeekBytes del body y lo repone completo.
func extractClientID(r *http.Request) string {
	if r.Body == nil || r.Method != http.MethodPost {
		return ""
	}
	peek, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	if err != nil {
		return ""
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), r.Body), r.Body}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded":
		vals, err := url.ParseQuery(string(peek))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(vals.Get("client_id"))
	default:
		var tmp struct {
			ClientID string `json:"client_id"`
		}
		if err := json.Unmarshal(peek, &tmp); err != nil {
			return ""
		}
		return strings.TrimSpace(tmp.ClientID)
	}
}
