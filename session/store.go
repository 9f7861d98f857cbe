package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	insertStatusDuplicate int64 = 0
	insertStatusCreated   int64 = 1

	revokeStatusNotFound int64 = -1
	revokeStatusNoop     int64 = 0
	revokeStatusRevoked  int64 = 1

	rotateStatusDuplicate int64 = -2
)

// Field layout of a record hash:
//
//	identity_id  decimal int64
//	revoked      "0" | "1"
//	expires_at   unix milliseconds
//	created_at   unix milliseconds
const insertRecordScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "identity_id", ARGV[2], "revoked", "0", "expires_at", ARGV[3], "created_at", ARGV[4])
local expire_at = tonumber(ARGV[5])
if expire_at > 0 then
  redis.call("PEXPIREAT", KEYS[1], expire_at)
end
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

var insertRecordLua = redis.NewScript(insertRecordScript)

const revokeIfActiveScript = `
local state = redis.call("HMGET", KEYS[1], "revoked", "identity_id")
if not state[1] then
  return -1
end
if state[1] == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
redis.call("SREM", ARGV[2] .. state[2], ARGV[1])
return 1
`

var revokeIfActiveLua = redis.NewScript(revokeIfActiveScript)

const rotateRecordScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -2
end
local state = redis.call("HMGET", KEYS[1], "revoked", "identity_id")
if not state[1] then
  return -1
end
if state[1] == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
redis.call("SREM", ARGV[2] .. state[2], ARGV[1])

redis.call("HSET", KEYS[2], "identity_id", ARGV[4], "revoked", "0", "expires_at", ARGV[5], "created_at", ARGV[6])
local expire_at = tonumber(ARGV[7])
if expire_at > 0 then
  redis.call("PEXPIREAT", KEYS[2], expire_at)
end
redis.call("SADD", ARGV[2] .. ARGV[4], ARGV[3])
return 1
`

var rotateRecordLua = redis.NewScript(rotateRecordScript)

const revokeAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call("HGET", key, "revoked") == "0" then
    redis.call("HSET", key, "revoked", "1")
    n = n + 1
  end
end
redis.call("DEL", KEYS[1])
return n
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Store is a Redis-backed Ledger. Every mutation is a single Lua script, so the
// check and the write of RevokeIfActive and Rotate cannot interleave with
// another client.
//
// Records are kept indefinitely with a retention of zero, which is what the
// server uses. A positive retention is an opt-in for throwaway deployments:
// keys then expire at ExpiresAt plus retention and their token ids are lost
// to replay detection.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewStore creates a ledger [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(client redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "sax"
	}
	return &Store{
		redis:     client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *Store) recordPrefix() string {
	return s.prefix + ":rt:"
}

func (s *Store) identityPrefix() string {
	return s.prefix + ":ri:"
}

func (s *Store) key(tokenID string) string {
	return s.recordPrefix() + tokenID
}

func (s *Store) identityKey(identityID int64) string {
	return s.identityPrefix() + strconv.FormatInt(identityID, 10)
}

func (s *Store) expireAt(rec Record) int64 {
	if s.retention <= 0 {
		return 0
	}
	return rec.ExpiresAt.Add(s.retention).UnixMilli()
}

// Insert persists rec. It returns ErrDuplicateTokenID when the token id is taken.
//
//	Performance: 1 Lua script (EXISTS + HSET + PEXPIREAT + SADD).
func (s *Store) Insert(ctx context.Context, rec Record) error {
	res, err := insertRecordLua.Run(ctx, s.redis,
		[]string{s.key(rec.TokenID), s.identityKey(rec.IdentityID)},
		rec.TokenID,
		rec.IdentityID,
		rec.ExpiresAt.UnixMilli(),
		rec.CreatedAt.UnixMilli(),
		s.expireAt(rec),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == insertStatusDuplicate {
		return ErrDuplicateTokenID
	}
	return nil
}

// FindByTokenID loads a record. Missing ids return ErrRecordNotFound.
//
//	Performance: 1 Redis HGETALL.
func (s *Store) FindByTokenID(ctx context.Context, tokenID string) (*Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(tokenID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrRecordNotFound
	}
	return decodeRecord(tokenID, fields)
}

// RevokeIfActive flips revoked to true when the record exists and is active.
//
//	Performance: 1 Lua script.
func (s *Store) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	res, err := revokeIfActiveLua.Run(ctx, s.redis,
		[]string{s.key(tokenID)},
		tokenID,
		s.identityPrefix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == revokeStatusRevoked, nil
}

// Rotate revokes oldTokenID and inserts next in one script. The successor is
// written only when this call performed the revoke.
func (s *Store) Rotate(ctx context.Context, oldTokenID string, next Record) (bool, error) {
	res, err := rotateRecordLua.Run(ctx, s.redis,
		[]string{s.key(oldTokenID), s.key(next.TokenID)},
		oldTokenID,
		s.identityPrefix(),
		next.TokenID,
		next.IdentityID,
		next.ExpiresAt.UnixMilli(),
		next.CreatedAt.UnixMilli(),
		s.expireAt(next),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	switch res {
	case rotateStatusDuplicate:
		return false, ErrDuplicateTokenID
	case revokeStatusRevoked:
		return true, nil
	case revokeStatusNoop, revokeStatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("session: unexpected rotate status %d", res)
	}
}

// RevokeAllForIdentity revokes every active record indexed under identityID.
func (s *Store) RevokeAllForIdentity(ctx context.Context, identityID int64) (int, error) {
	n, err := revokeAllLua.Run(ctx, s.redis,
		[]string{s.identityKey(identityID)},
		s.recordPrefix(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// ActiveTokenIDs returns the ids currently indexed as active for identityID.
func (s *Store) ActiveTokenIDs(ctx context.Context, identityID int64) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.identityKey(identityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeRecord(tokenID string, fields map[string]string) (*Record, error) {
	identityID, err := strconv.ParseInt(fields["identity_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session: corrupt identity_id for %s", tokenID)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session: corrupt expires_at for %s", tokenID)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session: corrupt created_at for %s", tokenID)
	}

	return &Record{
		TokenID:    tokenID,
		IdentityID: identityID,
		Revoked:    fields["revoked"] == "1",
		ExpiresAt:  time.UnixMilli(expiresAt).UTC(),
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
	}, nil
}
