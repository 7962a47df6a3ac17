// Package refresh persists refresh-token records and performs the atomic
// unused→used rotation that makes every refresh token single-use.
//
// Records are keyed by the SHA-256 of the opaque token; the plaintext never
// reaches the store. Tokens rotated from one another share a FamilyID, and
// revoking a family invalidates every record in it.
package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/mcgate/internal/scope"
)

var (
	ErrNotFound    = errors.New("refresh: token not found")
	ErrReused      = errors.New("refresh: token already used")
	ErrExpired     = errors.New("refresh: token expired")
	ErrRevoked     = errors.New("refresh: token family revoked")
	ErrUnavailable = errors.New("refresh: store unavailable")
)

// Record es el estado server-side de un refresh token.
type Record struct {
	ID        string
	ClientID  string
	FamilyID  string
	ParentID  string
	Scopes    scope.Set
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    time.Time
	// Revoked refleja el marcador de la familia al momento de leer.
	Revoked bool
}

// Rotation describe un canje: OldID pasa de unused a used y Next se guarda,
// en una sola operación. Next.FamilyID debe coincidir con el del registro viejo.
type Rotation struct {
	OldID string
	Next  Record
	Now   time.Time
	// RevokeFamilyOnReuse revoca la familia cuando OldID ya estaba usado.
	RevokeFamilyOnReuse bool
}

// Store es el almacenamiento compartido de refresh tokens.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// Rotate devuelve ErrNotFound, ErrReused, ErrRevoked o ErrExpired (en ese
	// orden de precedencia) sin modificar nada, salvo la revocación por reuso.
	// Un registro ya usado siempre es ErrReused, aunque su familia esté revocada.
	Rotate(ctx context.Context, r Rotation) error
	RevokeFamily(ctx context.Context, familyID string) error
	// RevokeClient revoca todas las familias activas del cliente y devuelve cuántas.
	RevokeClient(ctx context.Context, clientID string) (int, error)
	Ping(ctx context.Context) error
}
