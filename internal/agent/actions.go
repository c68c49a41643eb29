package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/promptforge/internal/logger"
	"github.com/kayz/promptforge/internal/persist"
)

var (
	// ErrUnknownAction is returned by RunOne for an unregistered key.
	ErrUnknownAction = errors.New("unknown action")

	errNoGenerator = errors.New("agent has no generator")
)

// Params is the optional parameter bag passed to every action of a run.
type Params map[string]any

// String returns params[key] when it is a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// ActionFunc performs an action against the agent.
type ActionFunc func(ctx context.Context, a *Agent, params Params) (any, error)

// Action is a named unit of work. Actions are enabled unless Disabled is set.
type Action struct {
	Key      string
	Title    string
	Disabled bool
	Order    int
	Run      ActionFunc
}

// ActionError is the per-key failure of an action. It never aborts a run.
type ActionError struct {
	Key string
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Key, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one action.
type Result struct {
	Value any
	Err   *ActionError
}

// Results maps action keys to their outcome.
type Results map[string]Result

// Failed returns the keys whose action failed, sorted.
func (r Results) Failed() []string {
	var keys []string
	for k, res := range r {
		if res.Err != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// RegisterAction adds act, failing with a DuplicateKeyError if its key is
// taken.
func (a *Agent) RegisterAction(act Action) error {
	if err := validateAction(act); err != nil {
		return err
	}
	return a.actions.Insert(act.Key, act)
}

// UpsertAction adds or replaces act. It applies the same checks as
// RegisterAction.
func (a *Agent) UpsertAction(act Action) error {
	if err := validateAction(act); err != nil {
		return err
	}
	a.actions.Set(act.Key, act)
	return nil
}

func validateAction(act Action) error {
	if act.Key == "" {
		return fmt.Errorf("action key is required")
	}
	if act.Run == nil {
		return fmt.Errorf("action %s has no run function", act.Key)
	}
	return nil
}

// RemoveAction deletes the action under key, if any.
func (a *Agent) RemoveAction(key string) *Agent {
	a.actions.Delete(key)
	return a
}

func (a *Agent) Action(key string) (Action, bool) {
	return a.actions.Get(key)
}

// Actions returns every registered action in run order.
func (a *Agent) Actions() []Action {
	entries := a.actions.Entries()
	out := make([]Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Run executes every enabled action sequentially in ascending order, ties in
// registration order. Failures are captured per key.
func (a *Agent) Run(ctx context.Context, params Params) Results {
	runID := uuid.NewString()
	results := make(Results)

	for _, act := range a.Actions() {
		if act.Disabled {
			continue
		}
		results[act.Key] = a.execute(ctx, runID, act, params)
	}
	return results
}

// RunOne executes a single registered action, regardless of its Disabled
// flag.
func (a *Agent) RunOne(ctx context.Context, key string, params Params) (any, error) {
	act, ok := a.actions.Get(key)
	if !ok {
		return nil, &ActionError{Key: key, Err: ErrUnknownAction}
	}
	res := a.execute(ctx, uuid.NewString(), act, params)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Value, nil
}

func (a *Agent) execute(ctx context.Context, runID string, act Action, params Params) Result {
	started := time.Now()
	value, err := callAction(ctx, a, act, params)
	elapsed := time.Since(started)

	res := Result{Value: value}
	if err != nil {
		res = Result{Err: &ActionError{Key: act.Key, Err: err}}
		logger.Warn("[AGENT] Action %s failed: %v", act.Key, err)
	} else {
		logger.Debug("[AGENT] Action %s finished in %s", act.Key, elapsed)
	}

	a.recordRun(ctx, runID, act.Key, res, started, elapsed)
	return res
}

func callAction(ctx context.Context, a *Agent, act Action, params Params) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[AGENT] Action %s panicked: %v\n%s", act.Key, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if act.Run == nil {
		return nil, fmt.Errorf("no run function")
	}
	return act.Run(ctx, a, params)
}

func (a *Agent) recordRun(ctx context.Context, runID, key string, res Result, started time.Time, elapsed time.Duration) {
	if a.store == nil {
		return
	}
	run := &persist.Run{
		RunID:     runID,
		Agent:     a.name,
		Action:    key,
		Status:    persist.RunOK,
		Output:    res.Value,
		StartedAt: started,
		Duration:  elapsed,
	}
	if res.Err != nil {
		run.Status = persist.RunError
		run.Error = res.Err.Err.Error()
	}
	if err := a.store.RecordRun(ctx, run); err != nil {
		logger.Warn("[AGENT] Failed to record run %s/%s: %v", runID, key, err)
	}
}
