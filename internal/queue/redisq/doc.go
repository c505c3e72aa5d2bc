// Package redisq is the Redis implementation of queue.Backend.
//
// Each job is a hash under <prefix>:job:<handle>. New handles are pushed onto
// <prefix>:pending; Dequeue moves one onto <prefix>:processing with BLMOVE and
// then flips the hash from queued to processing inside a Lua script, so a
// handle is claimed at most once even if it ever appears in pending twice.
// Terminal writes are Lua scripts guarded on status=processing that also set
// the key TTL to the retention window. A sorted set indexes handles by
// submission sequence for listing.
package redisq
