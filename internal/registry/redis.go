package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

// KEYS[1] token key, KEYS[2] user set | ARGV[1] user id, ARGV[2] ttl ms, ARGV[3] token hash,
// ARGV[4] user set prefix
const putScript = `
local prev = redis.call("GET", KEYS[1])
if prev and prev ~= ARGV[1] then
  redis.call("SREM", ARGV[4] .. prev, ARGV[3])
end
if tonumber(ARGV[2]) > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
  redis.call("SADD", KEYS[2], ARGV[3])
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
else
  redis.call("SET", KEYS[1], ARGV[1])
  redis.call("SADD", KEYS[2], ARGV[3])
end
return 1
`

// KEYS[1] token key | ARGV[1] user set prefix, ARGV[2] token hash
const consumeScript = `
local uid = redis.call("GET", KEYS[1])
if not uid then
  return false
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
return uid
`

// KEYS[1] user set | ARGV[1] token key prefix
const revokeUserScript = `
local members = redis.call("SMEMBERS", KEYS[1])
for _, h in ipairs(members) do
  redis.call("DEL", ARGV[1] .. h)
end
redis.call("DEL", KEYS[1])
return #members
`

var (
	putLua        = redis.NewScript(putScript)
	consumeLua    = redis.NewScript(consumeScript)
	revokeUserLua = redis.NewScript(revokeUserScript)
)

// Redis stores tokens in Redis so several API instances share sessions.
// Layout: <prefix>:tok:<hash> -> user id, <prefix>:user:<id> -> set of hashes.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	opts   options
}

var _ Registry = (*Redis)(nil)

func NewRedis(rdb redis.UniversalClient, prefix string, opts ...Option) *Redis {
	if prefix == "" {
		prefix = "rt"
	}
	return &Redis{rdb: rdb, prefix: prefix, opts: buildOptions(opts)}
}

func (r *Redis) tokenPrefix() string { return r.prefix + ":tok:" }
func (r *Redis) userPrefix() string  { return r.prefix + ":user:" }

func (r *Redis) tokenKey(h string) string { return r.tokenPrefix() + h }

func (r *Redis) userKey(id uint64) string { return r.userPrefix() + strconv.FormatUint(id, 10) }

func (r *Redis) Put(ctx context.Context, token string, userID uint64) error {
	h := utils.HashToken(token)
	err := putLua.Run(ctx, r.rdb, []string{r.tokenKey(h), r.userKey(userID)},
		strconv.FormatUint(userID, 10), r.opts.ttl.Milliseconds(), h, r.userPrefix()).Err()
	if err != nil {
		return fmt.Errorf("registry put: %w", err)
	}
	return nil
}

func (r *Redis) Resolve(ctx context.Context, token string) (uint64, error) {
	v, err := r.rdb.Get(ctx, r.tokenKey(utils.HashToken(token))).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("registry resolve: %w", err)
	}
	return parseUserID(v)
}

func (r *Redis) Consume(ctx context.Context, token string) (uint64, error) {
	h := utils.HashToken(token)
	v, err := consumeLua.Run(ctx, r.rdb, []string{r.tokenKey(h)}, r.userPrefix(), h).Text()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("registry consume: %w", err)
	}
	return parseUserID(v)
}

func (r *Redis) Revoke(ctx context.Context, token string) error {
	_, err := r.Consume(ctx, token)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	return err
}

func (r *Redis) RevokeUser(ctx context.Context, userID uint64) error {
	err := revokeUserLua.Run(ctx, r.rdb, []string{r.userKey(userID)}, r.tokenPrefix()).Err()
	if err != nil {
		return fmt.Errorf("registry revoke user: %w", err)
	}
	return nil
}

func parseUserID(v string) (uint64, error) {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("registry: corrupt entry %q: %w", v, err)
	}
	return id, nil
}
