package workflow

import (
	"sync"
)

// executor is one slot of the worker pool. It owns its engine.
type executor struct {
	id string

	mu         sync.Mutex
	engine     Transcriber
	engineJobs int
	jobsDone   int
	current    string
}

// acquireEngine returns the executor's engine, creating it on first use.
func (e *executor) acquireEngine(factory EngineFactory) Transcriber {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine == nil {
		e.engine = factory()
		e.engineJobs = 0
	}
	e.engineJobs++
	return e.engine
}

// recycleIfDue closes the engine once it has served limit jobs. A limit of
// zero never recycles.
func (e *executor) recycleIfDue(limit int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || e.engine == nil || e.engineJobs < limit {
		return false, nil
	}
	err := e.engine.Close()
	e.engine = nil
	e.engineJobs = 0
	return true, err
}

func (e *executor) closeEngine() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine == nil {
		return nil
	}
	err := e.engine.Close()
	e.engine = nil
	e.engineJobs = 0
	return err
}

func (e *executor) begin(handle string) {
	e.mu.Lock()
	e.current = handle
	e.mu.Unlock()
}

func (e *executor) end() {
	e.mu.Lock()
	e.current = ""
	e.jobsDone++
	e.mu.Unlock()
}

func (e *executor) snapshot() ExecutorStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := ExecutorStatus{
		ID:         e.id,
		CurrentJob: e.current,
		JobsDone:   e.jobsDone,
		EngineJobs: e.engineJobs,
	}
	if e.engine != nil {
		status.EngineLoaded = true
		if lr, ok := e.engine.(loadReporter); ok {
			status.EngineLoaded = lr.Loaded()
		}
	}
	return status
}
