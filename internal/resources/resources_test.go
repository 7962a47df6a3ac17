package resources

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

func TestRouteTable(t *testing.T) {
	catalog := scope.All()
	seen := map[string]bool{}
	for _, g := range Groups {
		if !strings.HasSuffix(g.Prefix, "/v1") {
			t.Fatalf("group %s: prefix %q", g.Name, g.Prefix)
		}
		for _, r := range g.Routes {
			if seen[r.Name] {
				t.Fatalf("duplicate route name %s", r.Name)
			}
			seen[r.Name] = true
			if !catalog.Has(r.Scope) {
				t.Fatalf("%s requires unknown permission %q", r.Name, r.Scope)
			}
			key := r.Method + " " + g.Prefix + r.Pattern
			if seen[key] {
				t.Fatalf("duplicate route %s", key)
			}
			seen[key] = true
		}
	}
}

func TestUploadIsTheOnlyOverride(t *testing.T) {
	var upload *Route
	for _, g := range Groups {
		for i, r := range g.Routes {
			if r.Name == "assets.upload" {
				upload = &g.Routes[i]
				continue
			}
			if r.Category != rate.Inherit {
				t.Fatalf("%s: category %q, want inherit", r.Name, r.Category)
			}
		}
	}
	if upload == nil || upload.Category != rate.Upload || upload.Method != "POST" {
		t.Fatalf("assets.upload = %+v", upload)
	}
}
