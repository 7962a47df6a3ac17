package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore implementa Store en proceso. El mutex solo cubre operaciones
// en memoria; sirve para una instancia y para tests.
type MemoryStore struct {
	mu        sync.Mutex
	records   *cache.Cache // id -> Record
	families  *cache.Cache // family_id -> struct{} (revocada)
	clients   map[string]map[string]time.Time
	familyTTL time.Duration
}

func NewMemoryStore(familyTTL time.Duration) *MemoryStore {
	if familyTTL <= 0 {
		familyTTL = 24 * time.Hour
	}
	return &MemoryStore{
		records:   cache.New(cache.NoExpiration, 10*time.Minute),
		families:  cache.New(cache.NoExpiration, 10*time.Minute),
		clients:   make(map[string]map[string]time.Time),
		familyTTL: familyTTL,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(rec, rec.IssuedAt)
	return nil
}

func (s *MemoryStore) put(rec Record, now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	rec.Revoked = false
	s.records.Set(rec.ID, rec, ttlUntil(rec.ExpiresAt, now))
	fams, ok := s.clients[rec.ClientID]
	if !ok {
		fams = make(map[string]time.Time)
		s.clients[rec.ClientID] = fams
	}
	fams[rec.FamilyID] = time.Now().Add(s.familyTTL)
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records.Get(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	rec := v.(Record)
	_, rec.Revoked = s.families.Get(rec.FamilyID)
	return rec, nil
}

func (s *MemoryStore) Rotate(_ context.Context, r Rotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.records.Get(r.OldID)
	if !ok {
		return ErrNotFound
	}
	old := v.(Record)
	if old.FamilyID != r.Next.FamilyID {
		return ErrNotFound
	}
	if old.Used {
		if r.RevokeFamilyOnReuse {
			s.families.Set(old.FamilyID, struct{}{}, s.familyTTL)
		}
		return ErrReused
	}
	if _, revoked := s.families.Get(old.FamilyID); revoked {
		return ErrRevoked
	}
	if !r.Now.Before(old.ExpiresAt) {
		return ErrExpired
	}

	old.Used = true
	old.UsedAt = r.Now
	s.records.Set(old.ID, old, ttlUntil(old.ExpiresAt, r.Now))
	s.put(r.Next, r.Now)
	return nil
}

func (s *MemoryStore) RevokeFamily(_ context.Context, familyID string) error {
	if familyID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.families.Set(familyID, struct{}{}, s.familyTTL)
	return nil
}

func (s *MemoryStore) RevokeClient(_ context.Context, clientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for fid, until := range s.clients[clientID] {
		if now.After(until) {
			continue
		}
		s.families.Set(fid, struct{}{}, s.familyTTL)
		n++
	}
	delete(s.clients, clientID)
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
