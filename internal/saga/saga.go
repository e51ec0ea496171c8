// Package saga runs multi-step cluster changes as an ordered list of steps
// with optional compensations, journalling completed steps in the config
// store so an interrupted run can be resumed.
package saga

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ckan-cloud-operator/internal/config"
)

// ErrStepFailed wraps the error of the step that stopped a run.
var ErrStepFailed = errors.New("saga step failed")

// Journal status values.
const (
	StatusRunning            = "running"
	StatusCompleted          = "completed"
	StatusCompensationFailed = "compensation-failed"
)

const (
	keyRunID  = "run-id"
	keyStatus = "status"
	keyFailed = "failed-step"
	stepKey   = "step-"
)

// Step is one unit of work. Compensate, when set, undoes a completed Do.
type Step struct {
	Name       string
	Do         func() error
	Compensate func() error
}

// Saga is a named sequence of steps. The name identifies the journal, so the
// same logical operation must always use the same name.
type Saga struct {
	Name  string
	Steps []Step
}

// Result reports what a run did.
type Result struct {
	RunID    string
	Resumed  bool
	Executed []string
	Skipped  []string
}

// Runner executes sagas against a journal kept in the config store.
type Runner struct {
	store  *config.Store
	logger *zap.Logger
	newID  func() string
}

// NewRunner creates a Runner that journals into store.
func NewRunner(store *config.Store, logger *zap.Logger) *Runner {
	return &Runner{
		store:  store,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// JournalRef is where the journal for the saga called name is stored.
func (r *Runner) JournalRef(name string) (config.Ref, error) {
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return config.Ref{}, err
	}
	return config.ConfigMap(scheme.ResourceName("saga-"+name), ""), nil
}

// Run executes s. A journal left running by an earlier run is resumed:
// steps it recorded as done are skipped. When a step fails, completed steps
// are compensated in reverse order and their journal marks cleared, so a
// rerun repeats exactly the work that is not in effect.
func (r *Runner) Run(s Saga) (Result, error) {
	ref, err := r.JournalRef(s.Name)
	if err != nil {
		return Result{}, err
	}
	journal, err := r.store.GetAll(ref)
	if err != nil {
		return Result{}, fmt.Errorf("read journal for %s: %w", s.Name, err)
	}

	var res Result
	if journal[keyStatus] != "" && journal[keyStatus] != StatusCompleted && journal[keyRunID] != "" {
		res.RunID = journal[keyRunID]
		res.Resumed = true
	} else {
		res.RunID = r.newID()
		journal = map[string]string{}
	}
	journal[keyRunID] = res.RunID
	journal[keyStatus] = StatusRunning
	delete(journal, keyFailed)
	if err := r.save(ref, journal); err != nil {
		return res, err
	}

	logger := r.logger.With(zap.String("saga", s.Name), zap.String("runID", res.RunID))
	var done []Step
	for i, step := range s.Steps {
		if journal[stepKey+step.Name] != "" {
			logger.Debug("step already done", zap.String("step", step.Name))
			res.Skipped = append(res.Skipped, step.Name)
			done = append(done, step)
			continue
		}
		logger.Debug("running step", zap.String("step", step.Name))
		if err := step.Do(); err != nil {
			stepErr := fmt.Errorf("%w: %s/%s: %w", ErrStepFailed, s.Name, step.Name, err)
			journal[keyFailed] = step.Name
			return res, r.compensate(ref, journal, done, stepErr, logger)
		}
		journal[stepKey+step.Name] = strconv.Itoa(i + 1)
		if err := r.save(ref, journal); err != nil {
			return res, err
		}
		res.Executed = append(res.Executed, step.Name)
		done = append(done, step)
	}

	journal[keyStatus] = StatusCompleted
	if err := r.save(ref, journal); err != nil {
		return res, err
	}
	logger.Info("saga completed", zap.Strings("executed", res.Executed), zap.Strings("skipped", res.Skipped))
	return res, nil
}

func (r *Runner) compensate(ref config.Ref, journal map[string]string, done []Step, cause error, logger *zap.Logger) error {
	errs := []error{cause}
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		logger.Warn("compensating step", zap.String("step", step.Name))
		if err := step.Compensate(); err != nil {
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
			journal[keyStatus] = StatusCompensationFailed
			break
		}
		delete(journal, stepKey+step.Name)
	}
	if err := r.save(ref, journal); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) save(ref config.Ref, journal map[string]string) error {
	if _, err := r.store.Set(ref, config.SetRequest{Values: journal}); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Journal returns the stored journal of the saga called name, or an empty
// map when it never ran.
func (r *Runner) Journal(name string) (map[string]string, error) {
	ref, err := r.JournalRef(name)
	if err != nil {
		return nil, err
	}
	return r.store.GetAll(ref)
}
