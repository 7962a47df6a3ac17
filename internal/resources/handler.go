package resources

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	"github.com/dropDatabas3/mcgate/internal/http/middlewares"
)

// Handler sirve una ruta ya admitida por el gatekeeper.
type Handler interface {
	ServeResource(w http.ResponseWriter, r *http.Request, route Route)
}

// HandlerFunc adapta una función a Handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, route Route)

func (f HandlerFunc) ServeResource(w http.ResponseWriter, r *http.Request, route Route) {
	f(w, r, route)
}

// EchoResponse es lo que devuelve Echo: quién entró y por dónde.
type EchoResponse struct {
	Route     string            `json:"route"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Params    map[string]string `json:"params,omitempty"`
	ClientID  string            `json:"client_id"`
	Scopes    []string          `json:"scopes"`
	Category  string            `json:"category"`
	RequestID string            `json:"request_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Echo es el Handler por defecto: no persiste nada, responde con la
// identidad admitida.
type Echo struct{}

func (Echo) ServeResource(w http.ResponseWriter, r *http.Request, route Route) {
	ctx := r.Context()
	id, _ := middlewares.GetIdentity(ctx)
	cat, _ := middlewares.GetCategory(ctx)
	resp := EchoResponse{
		Route:     route.Name,
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientID:  id.ClientID,
		Scopes:    id.Scopes.Slice(),
		Category:  cat.String(),
		RequestID: middlewares.GetRequestID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if rc := chi.RouteContext(ctx); rc != nil && len(rc.URLParams.Keys) > 0 {
		resp.Params = make(map[string]string, len(rc.URLParams.Keys))
		for i, k := range rc.URLParams.Keys {
			resp.Params[k] = rc.URLParams.Values[i]
		}
	}
	status := http.StatusOK
	if r.Method == http.MethodPost && strings.HasSuffix(route.Scope, ":write") {
		status = http.StatusCreated
	}
	helpers.WriteJSON(w, status, resp)
}
