package hub

import "context"

// PrewarmExecutor adapts the Lifecycle Coordinator to internal/schedule's
// JobExecutor interface so a cron expression can drive StartModel the same
// way an operator or the control plane does (SPEC_FULL.md's scheduled
// pre-warm supplement: a JIT model started ahead of an expected traffic
// window, named by its ModelSpec.PrewarmSchedule cron expression).
type PrewarmExecutor struct {
	coordinator *Coordinator
}

// NewPrewarmExecutor wraps a Coordinator as a schedule.JobExecutor.
func NewPrewarmExecutor(coordinator *Coordinator) *PrewarmExecutor {
	return &PrewarmExecutor{coordinator: coordinator}
}

// Execute starts the named model and reports success/failure the way
// internal/schedule.JobExecutor expects: exit code 0 on success, non-zero
// with the error on failure. A pre-warm job never stops a model — only
// the idle-unload monitor or an explicit operator stop does that.
func (e *PrewarmExecutor) Execute(ctx context.Context, modelName string) (int, error) {
	if err := e.coordinator.StartModel(ctx, modelName); err != nil {
		return 1, err
	}
	return 0, nil
}
