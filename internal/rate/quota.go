package rate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quota: como máximo Limit intentos por Window.
type Quota struct {
	Limit  int64
	Window time.Duration
}

func (q Quota) String() string {
	switch q.Window {
	case time.Second:
		return fmt.Sprintf("%d/second", q.Limit)
	case time.Minute:
		return fmt.Sprintf("%d/minute", q.Limit)
	case time.Hour:
		return fmt.Sprintf("%d/hour", q.Limit)
	case 24 * time.Hour:
		return fmt.Sprintf("%d/day", q.Limit)
	}
	return fmt.Sprintf("%d/%s", q.Limit, q.Window)
}

// ParseQuota lee "100/minute", "100 per minute", "5/second" o "20/30s".
func ParseQuota(s string) (Quota, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	var n, unit string
	if i := strings.Index(raw, "/"); i >= 0 {
		n, unit = raw[:i], raw[i+1:]
	} else if i := strings.Index(raw, " per "); i >= 0 {
		n, unit = raw[:i], raw[i+len(" per "):]
	} else {
		return Quota{}, fmt.Errorf("rate: malformed quota %q", s)
	}

	limit, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	if err != nil || limit <= 0 {
		return Quota{}, fmt.Errorf("rate: malformed quota limit in %q", s)
	}

	unit = strings.TrimSpace(unit)
	var window time.Duration
	switch strings.TrimSuffix(unit, "s") {
	case "second", "sec":
		window = time.Second
	case "minute", "min":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		d, err := time.ParseDuration(unit)
		if err != nil || d < time.Millisecond {
			return Quota{}, fmt.Errorf("rate: malformed quota window in %q", s)
		}
		window = d
	}
	return Quota{Limit: limit, Window: window}, nil
}

// MustQuota es ParseQuota para literales.
func MustQuota(s string) Quota {
	q, err := ParseQuota(s)
	if err != nil {
		panic(err)
	}
	return q
}

// FailurePolicy decide qué hacer cuando el store de contadores no responde.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "open"
	FailClosed FailurePolicy = "closed"
)

// ParseFailurePolicy acepta open/closed (y fail-open/fail-closed).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "fail-") {
	case "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	}
	return "", fmt.Errorf("rate: unknown failure policy %q", s)
}

// Policy: todas las cuotas deben pasar para admitir.
type Policy struct {
	Quotas         []Quota
	OnStoreFailure FailurePolicy
}

// DefaultPolicies son las cuotas documentadas de la API emulada.
// Auth falla cerrado para no amplificar credential stuffing;
// Standard y Upload fallan abierto con warning.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		Standard: {
			Quotas:         []Quota{MustQuota("100/minute"), MustQuota("1000/hour")},
			OnStoreFailure: FailOpen,
		},
		Auth: {
			Quotas:         []Quota{MustQuota("5/second")},
			OnStoreFailure: FailClosed,
		},
		Upload: {
			Quotas:         []Quota{MustQuota("50/hour")},
			OnStoreFailure: FailOpen,
		},
	}
}
