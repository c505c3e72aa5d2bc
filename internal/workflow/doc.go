// Package workflow runs the transcription worker pool.
//
// The Manager starts one goroutine per configured executor. Each executor
// blocks on the queue, claims one job at a time and drives it to a terminal
// state: verify the input exists, normalize it (falling back to the original
// file when conversion fails), transcribe it with the executor's own engine,
// remove the converted temp file, delete the input and record the result or
// failure. A job that is claimed is always finished; shutdown and deadlines
// fail it rather than leaving it in processing.
//
// A separate maintenance loop fails jobs whose executor stopped sending
// heartbeats, purges expired records and prunes orphaned work files.
package workflow
