package rate

import (
	"context"
	"fmt"
	"time"
)

// Hit es el estado de una cuota después del incremento.
type Hit struct {
	Quota Quota
	// Current incluye el intento actual.
	Current int64
	// Previous es el contador de la ventana anterior (para suavizado).
	Previous int64
	// WindowStart es el inicio alineado de la ventana actual.
	WindowStart time.Time
}

// Backend incrementa atómicamente todas las cuotas de una clave.
// El incremento y el TTL de una ventana nueva deben ser una sola operación.
type Backend interface {
	Incr(ctx context.Context, key string, quotas []Quota, now time.Time) ([]Hit, error)
	Ping(ctx context.Context) error
}

// windowStart alinea now al múltiplo de window (epoch Unix).
func windowStart(now time.Time, window time.Duration) time.Time {
	ms := now.UnixMilli()
	w := window.Milliseconds()
	if w <= 0 {
		w = 1
	}
	return time.UnixMilli(ms - ms%w)
}

// windowKeys arma las claves actual/anterior. El hash tag {key} mantiene
// todas las ventanas de un cliente en el mismo slot de Redis Cluster.
func windowKeys(prefix, key string, q Quota, start time.Time) (cur, prev string) {
	w := q.Window.Milliseconds()
	s := start.UnixMilli()
	cur = fmt.Sprintf("%s{%s}:%d:%d", prefix, key, w, s)
	prev = fmt.Sprintf("%s{%s}:%d:%d", prefix, key, w, s-w)
	return cur, prev
}

// counterTTL: la ventana tiene que sobrevivir una ventana más como "anterior".
func counterTTL(q Quota) time.Duration {
	return 2 * q.Window
}
