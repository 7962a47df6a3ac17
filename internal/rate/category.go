package rate

import (
	"fmt"
	"strings"
)

// Category agrupa endpoints con la misma política de cuotas.
// El limiter solo conoce la categoría, nunca la ruta.
type Category string

const (
	Standard Category = "standard"
	Auth     Category = "auth"
	Upload   Category = "upload"

	// Inherit marca rutas que usan la categoría asignada al cliente.
	Inherit Category = ""
)

// Categories lista las categorías conocidas.
var Categories = []Category{Standard, Auth, Upload}

// ParseCategory acepta el nombre en cualquier capitalización.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Standard, Auth, Upload:
		return c, nil
	case "":
		return Standard, nil
	}
	return "", fmt.Errorf("rate: unknown category %q", s)
}

func (c Category) String() string { return string(c) }
