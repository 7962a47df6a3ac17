// Package registry holds the catalog of API clients allowed to request tokens.
//
// A Registry is an immutable snapshot behind an atomic pointer: lookups never
// lock, and a reload builds a complete new snapshot before swapping it in.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/scope"
	"github.com/dropDatabas3/mcgate/internal/security/secret"
)

var ErrNotFound = errors.New("registry: client not found")

// Client is a registered API client.
type Client struct {
	ID         string        `yaml:"client_id" json:"client_id"`
	Name       string        `yaml:"name" json:"name"`
	SecretHash string        `yaml:"secret_hash" json:"-"`
	Scopes     scope.Set     `yaml:"scopes" json:"scopes"`
	Category   rate.Category `yaml:"rate_category" json:"rate_category"`
}

type snapshot struct {
	byID  map[string]Client
	order []string
	// dummy tiene el esquema del hash más caro del catálogo.
	dummy string
}

// Registry is safe for concurrent use.
type Registry struct {
	cur atomic.Pointer[snapshot]
}

// New validates clients and builds the first snapshot.
func New(clients []Client) (*Registry, error) {
	s, err := build(clients)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.cur.Store(s)
	return r, nil
}

func build(clients []Client) (*snapshot, error) {
	s := &snapshot{byID: make(map[string]Client, len(clients))}
	for i, c := range clients {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("registry: client #%d: empty client_id", i)
		}
		if _, dup := s.byID[c.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate client_id %q", c.ID)
		}
		if err := secret.CheckFormat(c.SecretHash); err != nil {
			return nil, fmt.Errorf("registry: client %q: %w", c.ID, err)
		}
		if err := c.Scopes.Validate(); err != nil {
			return nil, fmt.Errorf("registry: client %q: %w", c.ID, err)
		}
		cat, err := rate.ParseCategory(string(c.Category))
		if err != nil {
			return nil, fmt.Errorf("registry: client %q: %w", c.ID, err)
		}
		c.Category = cat
		if c.Name == "" {
			c.Name = c.ID
		}
		s.byID[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	sort.Strings(s.order)

	s.dummy = secret.Dummy
	var slowest string
	var work uint64
	for _, id := range s.order {
		if w := secret.Work(s.byID[id].SecretHash); w > work {
			work, slowest = w, s.byID[id].SecretHash
		}
	}
	if slowest != "" {
		d, err := secret.DummyLike(slowest)
		if err != nil {
			return nil, fmt.Errorf("registry: dummy hash: %w", err)
		}
		s.dummy = d
	}
	return s, nil
}

// Lookup returns the client or ErrNotFound.
func (r *Registry) Lookup(clientID string) (Client, error) {
	c, ok := r.cur.Load().byID[clientID]
	if !ok {
		return Client{}, fmt.Errorf("%w: %s", ErrNotFound, clientID)
	}
	return c, nil
}

// VerifySecret compares in constant time. Unknown clients pay for a
// comparison against a dummy hash with the catalog's most expensive scheme.
func (r *Registry) VerifySecret(clientID, plain string) bool {
	s := r.cur.Load()
	c, ok := s.byID[clientID]
	if !ok {
		_ = secret.Verify(plain, s.dummy)
		return false
	}
	return secret.Verify(plain, c.SecretHash)
}

// Authenticate is Lookup + VerifySecret in one step.
func (r *Registry) Authenticate(clientID, plain string) (Client, bool) {
	s := r.cur.Load()
	c, ok := s.byID[clientID]
	if !ok {
		_ = secret.Verify(plain, s.dummy)
		return Client{}, false
	}
	if !secret.Verify(plain, c.SecretHash) {
		return Client{}, false
	}
	return c, true
}

// Clients returns every client sorted by id.
func (r *Registry) Clients() []Client {
	s := r.cur.Load()
	out := make([]Client, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.cur.Load().order) }

// Swap replaces the whole catalog. On validation error the current snapshot stays.
func (r *Registry) Swap(clients []Client) error {
	s, err := build(clients)
	if err != nil {
		return err
	}
	r.cur.Store(s)
	return nil
}

// HashSecret produce un hash aceptado por New (sha256:<hex>, bcrypt o argon2id).
func HashSecret(plain string, alg secret.Algorithm) (string, error) {
	return secret.Hash(alg, plain)
}
