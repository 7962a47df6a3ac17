package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/mcgate/internal/scope"
)

// KEYS: 1 registro viejo, 2 registro nuevo, 3 marcador de familia, 4 set de familias del cliente
// ARGV: 1 now ms, 2 revocar en reuso, 3 ttl nuevo ms, 4 ttl familia ms, 5 family_id, 6.. campos del nuevo
var rotateScript = rdb.NewScript(`
local cur = redis.call('HMGET', KEYS[1], 'family_id', 'exp', 'used')
if not cur[1] or cur[1] ~= ARGV[5] then
  return 'not_found'
end
if cur[3] == '1' then
  if ARGV[2] == '1' then
    redis.call('SET', KEYS[3], '1', 'PX', ARGV[4])
  end
  return 'reused'
end
if redis.call('EXISTS', KEYS[3]) == 1 then
  return 'revoked'
end
if tonumber(cur[2]) <= tonumber(ARGV[1]) then
  return 'expired'
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[1])
redis.call('HSET', KEYS[2], unpack(ARGV, 6))
redis.call('PEXPIRE', KEYS[2], ARGV[3])
redis.call('SADD', KEYS[4], ARGV[5])
redis.call('PEXPIRE', KEYS[4], ARGV[4])
return 'ok'
`)

// RedisStore guarda registros como hashes con TTL igual a su expiración.
type RedisStore struct {
	client    rdb.UniversalClient
	prefix    string
	familyTTL time.Duration
}

// NewRedisStore: familyTTL debe cubrir la vida máxima de un refresh token
// (el marcador de revocación tiene que sobrevivir a todos los miembros).
func NewRedisStore(client rdb.UniversalClient, prefix string, familyTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "mcgate:"
	}
	if familyTTL <= 0 {
		familyTTL = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, familyTTL: familyTTL}
}

func (s *RedisStore) tokenKey(id string) string      { return s.prefix + "rt:" + id }
func (s *RedisStore) familyKey(fid string) string    { return s.prefix + "rf:" + fid }
func (s *RedisStore) clientKey(client string) string { return s.prefix + "rc:" + client }

func fields(rec Record) []any {
	used := "0"
	if rec.Used {
		used = "1"
	}
	return []any{
		"client_id", rec.ClientID,
		"family_id", rec.FamilyID,
		"parent_id", rec.ParentID,
		"scope", rec.Scopes.String(),
		"iat", strconv.FormatInt(rec.IssuedAt.UnixMilli(), 10),
		"exp", strconv.FormatInt(rec.ExpiresAt.UnixMilli(), 10),
		"used", used,
	}
}

func ttlUntil(exp, now time.Time) time.Duration {
	d := exp.Sub(now)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	now := time.Now()
	if !rec.IssuedAt.IsZero() {
		now = rec.IssuedAt
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.tokenKey(rec.ID), fields(rec)...)
	pipe.PExpire(ctx, s.tokenKey(rec.ID), ttlUntil(rec.ExpiresAt, now))
	pipe.SAdd(ctx, s.clientKey(rec.ClientID), rec.FamilyID)
	pipe.PExpire(ctx, s.clientKey(rec.ClientID), s.familyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("save", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	h, err := s.client.HGetAll(ctx, s.tokenKey(id)).Result()
	if err != nil {
		return Record{}, unavailable("get", err)
	}
	if len(h) == 0 {
		return Record{}, ErrNotFound
	}
	rec := Record{
		ID:       id,
		ClientID: h["client_id"],
		FamilyID: h["family_id"],
		ParentID: h["parent_id"],
		Scopes:   scope.Parse(h["scope"]),
		Used:     h["used"] == "1",
	}
	rec.IssuedAt = msTime(h["iat"])
	rec.ExpiresAt = msTime(h["exp"])
	rec.UsedAt = msTime(h["used_at"])

	n, err := s.client.Exists(ctx, s.familyKey(rec.FamilyID)).Result()
	if err != nil {
		return Record{}, unavailable("get", err)
	}
	rec.Revoked = n == 1
	return rec, nil
}

func msTime(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (s *RedisStore) Rotate(ctx context.Context, r Rotation) error {
	revoke := "0"
	if r.RevokeFamilyOnReuse {
		revoke = "1"
	}
	keys := []string{
		s.tokenKey(r.OldID),
		s.tokenKey(r.Next.ID),
		s.familyKey(r.Next.FamilyID),
		s.clientKey(r.Next.ClientID),
	}
	args := []any{
		r.Now.UnixMilli(),
		revoke,
		ttlUntil(r.Next.ExpiresAt, r.Now).Milliseconds(),
		s.familyTTL.Milliseconds(),
		r.Next.FamilyID,
	}
	args = append(args, fields(r.Next)...)

	status, err := rotateScript.Run(ctx, s.client, keys, args...).Text()
	if err != nil {
		return unavailable("rotate", err)
	}
	return statusErr(status)
}

func statusErr(status string) error {
	switch status {
	case "ok":
		return nil
	case "not_found":
		return ErrNotFound
	case "revoked":
		return ErrRevoked
	case "reused":
		return ErrReused
	case "expired":
		return ErrExpired
	}
	return fmt.Errorf("refresh: unexpected rotate status %q", status)
}

func (s *RedisStore) RevokeFamily(ctx context.Context, familyID string) error {
	if familyID == "" {
		return nil
	}
	if err := s.client.Set(ctx, s.familyKey(familyID), "1", s.familyTTL).Err(); err != nil {
		return unavailable("revoke", err)
	}
	return nil
}

func (s *RedisStore) RevokeClient(ctx context.Context, clientID string) (int, error) {
	fams, err := s.client.SMembers(ctx, s.clientKey(clientID)).Result()
	if err != nil && !errors.Is(err, rdb.Nil) {
		return 0, unavailable("revoke_client", err)
	}
	if len(fams) == 0 {
		return 0, nil
	}
	pipe := s.client.TxPipeline()
	for _, f := range fams {
		pipe.Set(ctx, s.familyKey(f), "1", s.familyTTL)
	}
	pipe.Del(ctx, s.clientKey(clientID))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, unavailable("revoke_client", err)
	}
	return len(fams), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
