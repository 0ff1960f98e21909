package release

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shipwright/internal/logging"
	"shipwright/internal/services"
)

// Orchestrator runs step definitions in order, probing before executing.
type Orchestrator struct {
	logger *slog.Logger
	// OnStep, when set, is called after each top-level step reaches a terminal state.
	OnStep func(StepResult)
	now    func() time.Time
}

// NewOrchestrator returns an Orchestrator logging through logger.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		logger: logging.NewComponentLogger(logger, "orchestrator"),
		now:    time.Now,
	}
}

// Run executes steps in order against rc. A non-tolerant failure stops the
// pipeline; later steps are reported as not started. The returned error wraps
// services.ErrFatalStep.
func (o *Orchestrator) Run(ctx context.Context, rc *Context, steps []StepDefinition) ([]StepResult, error) {
	ctx = services.WithRunID(ctx, rc.RunID)
	results := make([]StepResult, 0, len(steps))
	var runErr error
	for _, def := range steps {
		if runErr != nil {
			results = append(results, notStarted(def))
			continue
		}
		if err := ctx.Err(); err != nil {
			runErr = services.Wrap(services.ErrCancelled, def.Name, "run", "interrupted", err)
			results = append(results, notStarted(def))
			continue
		}
		res := o.runStep(ctx, rc, def)
		results = append(results, res)
		if o.OnStep != nil {
			o.OnStep(res)
		}
		if res.Outcome == OutcomeFailed && !res.Tolerant {
			runErr = res.Err
		}
	}
	return results, runErr
}

func (o *Orchestrator) runStep(ctx context.Context, rc *Context, def StepDefinition) StepResult {
	stepCtx := services.WithStep(ctx, def.Name)
	logger := logging.WithContext(stepCtx, o.logger)
	start := o.now()
	res := StepResult{Name: def.Name, Ordinal: def.Ordinal, State: StateNotStarted, Tolerant: def.Tolerant}
	finish := func() StepResult {
		res.Duration = o.now().Sub(start)
		return res
	}

	if len(def.Children) > 0 {
		return o.runComposite(stepCtx, rc, def, res, start)
	}

	if def.Probe != nil {
		present, err := def.Probe(stepCtx, rc)
		if err != nil {
			o.fail(logger, def, &res, "probe", err)
			return finish()
		}
		if present {
			res.State = StateSkipped
			res.Outcome = OutcomeSkippedAlreadyDone
			logger.Info("already done; skipping",
				logging.String(logging.FieldEventType, "step_skipped"),
				logging.String("reason", string(OutcomeSkippedAlreadyDone)),
			)
			return finish()
		}
	}

	if rc.DryRun {
		res.State = StateSkipped
		res.Outcome = OutcomeSkippedDryRun
		if def.Describe != nil {
			res.Description = def.Describe(rc)
		}
		logger.Info("dry run: would "+res.Description,
			logging.String(logging.FieldEventType, "step_skipped"),
			logging.String("reason", string(OutcomeSkippedDryRun)),
		)
		return finish()
	}

	res.State = StateExecuting
	logger.Info("step started", logging.String(logging.FieldEventType, "step_start"))
	if def.Execute != nil {
		if err := def.Execute(stepCtx, rc); err != nil {
			o.fail(logger, def, &res, "execute", err)
			return finish()
		}
	}
	res.State = StateDone
	res.Outcome = OutcomeExecuted
	res = finish()
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("duration", res.Duration),
	)
	return res
}

func (o *Orchestrator) runComposite(ctx context.Context, rc *Context, def StepDefinition, res StepResult, start time.Time) StepResult {
	logger := logging.WithContext(ctx, o.logger)
	var (
		executed, alreadyDone, dryRun int
		failed                        *StepResult
	)
	for _, child := range def.Children {
		if failed != nil {
			res.Children = append(res.Children, notStarted(child))
			continue
		}
		cr := o.runStep(ctx, rc, child)
		res.Children = append(res.Children, cr)
		switch {
		case cr.Outcome == OutcomeFailed && !cr.Tolerant:
			failed = &res.Children[len(res.Children)-1]
		case cr.Outcome == OutcomeFailed:
			// Tolerated child; the composite still counts as progressing.
			executed++
		case cr.Outcome == OutcomeExecuted:
			executed++
		case cr.Outcome == OutcomeSkippedAlreadyDone:
			alreadyDone++
		case cr.Outcome == OutcomeSkippedDryRun:
			dryRun++
		}
	}

	res.Duration = o.now().Sub(start)
	switch {
	case failed != nil:
		res.State = StateFailed
		res.Outcome = OutcomeFailed
		res.Err = failed.Err
		if def.Tolerant {
			res.Err = tolerated(def.Name, failed.Err)
		}
	case executed > 0:
		res.State = StateDone
		res.Outcome = OutcomeExecuted
	case dryRun > 0:
		res.State = StateSkipped
		res.Outcome = OutcomeSkippedDryRun
	default:
		res.State = StateSkipped
		res.Outcome = OutcomeSkippedAlreadyDone
	}
	logger.Debug("composite step finished",
		logging.String("outcome", string(res.Outcome)),
		logging.Int("executed", executed),
		logging.Int("already_done", alreadyDone),
		logging.Int("dry_run", dryRun),
	)
	return res
}

func (o *Orchestrator) fail(logger *slog.Logger, def StepDefinition, res *StepResult, phase string, err error) {
	res.State = StateFailed
	res.Outcome = OutcomeFailed
	if def.Tolerant {
		res.Err = tolerated(def.Name, err)
		logging.WarnWithContext(logger, "step failed; continuing", "step_tolerated",
			logging.String("phase", phase),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun later or perform this step manually"),
			logging.String(logging.FieldImpact, "release continues; remote may lag behind"),
		)
		return
	}
	if !errors.Is(err, services.ErrFatalStep) && !errors.Is(err, services.ErrCancelled) {
		err = services.Wrap(services.ErrFatalStep, def.Name, phase, "", err)
	}
	res.Err = err
	logging.ErrorWithContext(logger, "step failed", "step_failure",
		logging.String("phase", phase),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
	)
}

func tolerated(step string, err error) error {
	if errors.Is(err, services.ErrTolerableStep) {
		return err
	}
	return services.Wrap(services.ErrTolerableStep, step, "", "", err)
}

func notStarted(def StepDefinition) StepResult {
	res := StepResult{Name: def.Name, Ordinal: def.Ordinal, State: StateNotStarted, Tolerant: def.Tolerant}
	for _, child := range def.Children {
		res.Children = append(res.Children, notStarted(child))
	}
	return res
}
