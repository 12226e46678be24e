// Package engine executes batches of work items. Items are scheduled through
// an errgroup with bounded concurrency, but access to the device itself is
// serialized with a semaphore: one physical screen, one gesture stream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/session"
)

// SessionRunner is the engine's view of the session controller.
type SessionRunner interface {
	Run(ctx context.Context, item session.WorkItem) schemas.Result
}

// ItemResult pairs a work item with its terminal result and wall time.
type ItemResult struct {
	Item     session.WorkItem `json:"item"`
	Result   schemas.Result   `json:"result"`
	Duration time.Duration    `json:"duration"`
}

// RunReport summarizes one batch run.
type RunReport struct {
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Items    []ItemResult `json:"items"`
}

// Succeeded counts items that reached their goal.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Result.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts items that did not.
func (r *RunReport) Failed() int { return len(r.Items) - r.Succeeded() }

// Runner schedules work items onto the session controller.
type Runner struct {
	sessions  SessionRunner
	cfg       config.EngineConfig
	logger    *zap.Logger
	deviceSem *semaphore.Weighted
}

// NewRunner validates its dependencies and builds a Runner.
func NewRunner(sessions SessionRunner, cfg config.EngineConfig, logger *zap.Logger) (*Runner, error) {
	if sessions == nil {
		return nil, errors.New("session runner cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Runner{
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger.Named("engine"),
		deviceSem: semaphore.NewWeighted(1),
	}, nil
}

// workFile is the on-disk shape of a work list.
type workFile struct {
	Items []session.WorkItem `yaml:"items"`
}

// LoadWorkItems reads a YAML work list and validates each entry.
func LoadWorkItems(path string) ([]session.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read work list: %w", err)
	}

	var wf workFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse work list %s: %w", path, err)
	}
	if len(wf.Items) == 0 {
		return nil, fmt.Errorf("work list %s contains no items", path)
	}
	for i := range wf.Items {
		if wf.Items[i].Task == "" {
			return nil, fmt.Errorf("work list %s: item %d has no task", path, i)
		}
		if wf.Items[i].ID == "" {
			wf.Items[i].ID = fmt.Sprintf("item-%d", i+1)
		}
	}
	return wf.Items, nil
}

// RunAll executes every item and returns the full report. Item failures do
// not stop the batch; only context cancellation does.
func (r *Runner) RunAll(ctx context.Context, items []session.WorkItem) *RunReport {
	report := &RunReport{
		Started: time.Now().UTC(),
		Items:   make([]ItemResult, len(items)),
	}

	concurrency := r.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	r.logger.Info("Starting batch run",
		zap.Int("items", len(items)),
		zap.Int("concurrency", concurrency))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := r.deviceSem.Acquire(gctx, 1); err != nil {
				mu.Lock()
				report.Items[i] = ItemResult{Item: item, Result: schemas.Result{
					Status: schemas.ResultFailed, Message: "cancelled before start: " + err.Error(),
				}}
				mu.Unlock()
				return nil
			}
			defer r.deviceSem.Release(1)

			itemCtx := gctx
			if r.cfg.ItemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(gctx, r.cfg.ItemTimeout)
				defer cancel()
			}

			start := time.Now()
			result := r.sessions.Run(itemCtx, item)
			elapsed := time.Since(start)

			r.logger.Info("Work item finished",
				zap.String("item_id", item.ID),
				zap.String("status", string(result.Status)),
				zap.Int("steps", result.Steps),
				zap.Duration("duration", elapsed))

			mu.Lock()
			report.Items[i] = ItemResult{Item: item, Result: result, Duration: elapsed}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	report.Finished = time.Now().UTC()
	return report
}
