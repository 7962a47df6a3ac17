package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// fileFormat:
//
//	clients:
//	  - client_id: analytics_dashboard
//	    name: Analytics Dashboard
//	    secret_hash: sha256:8485...
//	    scopes: [contacts:read, campaigns:read]
//	    rate_category: standard
type fileFormat struct {
	Clients []Client `yaml:"clients"`
}

// LoadFile lee el catálogo desde YAML.
func LoadFile(path string) ([]Client, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	if len(f.Clients) == 0 {
		return nil, fmt.Errorf("registry: %s has no clients", path)
	}
	return f.Clients, nil
}

// Source produce un catálogo completo.
type Source func(ctx context.Context) ([]Client, error)

// FileSource lee path en cada recarga.
func FileSource(path string) Source {
	return func(context.Context) ([]Client, error) { return LoadFile(path) }
}

// Reloader recarga el registro desde una Source. Recargas concurrentes
// (SIGHUP repetidos) se colapsan en una sola lectura.
type Reloader struct {
	reg *Registry
	src Source
	sf  singleflight.Group
}

func NewReloader(reg *Registry, src Source) *Reloader {
	return &Reloader{reg: reg, src: src}
}

// Reload devuelve la cantidad de clientes cargados. Si falla, el snapshot
// anterior sigue activo.
func (r *Reloader) Reload(ctx context.Context) (int, error) {
	v, err, _ := r.sf.Do("reload", func() (any, error) {
		clients, err := r.src(ctx)
		if err != nil {
			return 0, err
		}
		if err := r.reg.Swap(clients); err != nil {
			return 0, err
		}
		return len(clients), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
