package redisq

import goredis "github.com/redis/go-redis/v9"

// KEYS: job, processing. ARGV: worker, now_ms, progress, handle.
var claimScript = goredis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if status ~= 'queued' then
  redis.call('LREM', KEYS[2], 1, ARGV[4])
  return 0
end
redis.call('HSET', KEYS[1], 'status', 'processing', 'worker_id', ARGV[1],
  'started_at', ARGV[2], 'last_heartbeat', ARGV[2], 'progress', ARGV[3])
return 1
`)

// KEYS: job. ARGV: field, value. Returns -1 missing, 0 not processing, 1 ok.
var touchScript = goredis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return -1 end
if status ~= 'processing' then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// KEYS: job, processing. ARGV: status, field, value, finished_ms, expires_ms, ttl_ms, handle.
var finishScript = goredis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return -1 end
if status ~= 'processing' then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[1], ARGV[2], ARGV[3],
  'finished_at', ARGV[4], 'expires_at', ARGV[5])
redis.call('HDEL', KEYS[1], 'progress')
redis.call('PEXPIRE', KEYS[1], ARGV[6])
redis.call('LREM', KEYS[2], 0, ARGV[7])
return 1
`)

// KEYS: job, processing, pending.
// ARGV: cutoff_ms, message, now_ms, expires_ms, ttl_ms, handle.
// Returns 1 when the job was failed, 2 when an unclaimed handle was pushed
// back to the head of pending, 0 otherwise.
var staleScript = goredis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
  redis.call('LREM', KEYS[2], 0, ARGV[6])
  return 0
end
if status == 'queued' then
  local submitted = tonumber(redis.call('HGET', KEYS[1], 'submitted_at') or '0')
  if submitted < tonumber(ARGV[1]) then
    redis.call('LREM', KEYS[2], 0, ARGV[6])
    redis.call('RPUSH', KEYS[3], ARGV[6])
    return 2
  end
  return 0
end
if status ~= 'processing' then
  redis.call('LREM', KEYS[2], 0, ARGV[6])
  return 0
end
local hb = tonumber(redis.call('HGET', KEYS[1], 'last_heartbeat') or '0')
if hb >= tonumber(ARGV[1]) then return 0 end
redis.call('HSET', KEYS[1], 'status', 'failed', 'error', ARGV[2],
  'finished_at', ARGV[3], 'expires_at', ARGV[4])
redis.call('HDEL', KEYS[1], 'progress')
redis.call('PEXPIRE', KEYS[1], ARGV[5])
redis.call('LREM', KEYS[2], 0, ARGV[6])
return 1
`)
