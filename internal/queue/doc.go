// Package queue owns the job model and the durable job queue / state store.
//
// A Job moves forward only: queued, processing, then completed or failed.
// Backend is the contract shared by the SQLite Store in this package and the
// Redis store in queue/redisq: FIFO enqueue, a blocking Dequeue that atomically
// claims one job for one executor, status-guarded writes so no transition can
// regress, and expiry of terminal records after the retention window.
//
// Schema changes bump schemaVersion in schema.go; the database holds in-flight
// work and short-lived results, so operators clear it to adopt a new schema.
package queue
