// Package audit registra las decisiones de admisión y los eventos de seguridad
// del token service. La entrega es asíncrona y best effort: si el buffer está
// lleno la entrada se descarta y se cuenta en metrics.AuditDropped.
package audit

import (
	"context"
	"time"
)

const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

// Entry es una fila del log de auditoría.
type Entry struct {
	ClientID  string    `json:"client_id"`
	Method    string    `json:"method"`
	Endpoint  string    `json:"endpoint"`
	Category  string    `json:"category"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Sink persiste lotes de entradas.
type Sink interface {
	Write(ctx context.Context, batch []Entry) error
	Close() error
}

// Auditor es lo que consumen el gatekeeper y el token service.
type Auditor interface {
	Record(e Entry)
}

// Nop descarta todo.
type Nop struct{}

func (Nop) Record(Entry) {}

func (Nop) Write(context.Context, []Entry) error { return nil }

func (Nop) Close() error { return nil }
