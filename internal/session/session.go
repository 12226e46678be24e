// File: internal/session/session.go
//
// Package session runs the closed perception-decision-actuation loop for a
// single work item: unlock the device, bring the target app to the
// foreground, then iterate scenes through the decision oracle until the task
// finishes, fails, or runs out of budget. Exactly one Result comes out.
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/oracle"
)

// maxHistory bounds the previous-action summary sent to the oracle.
const maxHistory = 10

// WorkItem is one task for one app.
type WorkItem struct {
	ID         string `yaml:"id" json:"id"`
	Task       string `yaml:"task" json:"task"`
	Package    string `yaml:"package" json:"package"`
	PayloadRef string `yaml:"payload_ref,omitempty" json:"payload_ref,omitempty"`
	Caption    string `yaml:"caption,omitempty" json:"caption,omitempty"`
}

// Perceiver captures the device's current scene.
type Perceiver interface {
	Capture(ctx context.Context) (*schemas.Scene, error)
}

// Actor applies one directive to the device.
type Actor interface {
	Execute(ctx context.Context, d schemas.ActionDirective, scene *schemas.Scene) schemas.ExecutionOutcome
}

// Unlocker establishes the unlocked-device precondition.
type Unlocker interface {
	Ensure(ctx context.Context) schemas.UnlockState
}

// Controller owns one session at a time. It holds the device ports
// exclusively for the session's duration.
type Controller struct {
	perceiver Perceiver
	decider   oracle.Oracle
	actor     Actor
	unlocker  Unlocker
	input     schemas.InputPort
	screen    schemas.ScreenPort
	cfg       config.SessionConfig
	logger    *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController wires a session Controller.
func NewController(p Perceiver, o oracle.Oracle, a Actor, u Unlocker, input schemas.InputPort, screen schemas.ScreenPort, cfg config.SessionConfig, logger *zap.Logger) *Controller {
	return &Controller{
		perceiver: p,
		decider:   o,
		actor:     a,
		unlocker:  u,
		input:     input,
		screen:    screen,
		cfg:       cfg,
		logger:    logger.Named("session"),
		sleep:     sleepCtx,
	}
}

// Run executes one work item to completion and returns its terminal Result.
// It never returns an error; every failure mode is folded into the Result.
func (c *Controller) Run(ctx context.Context, item WorkItem) schemas.Result {
	sessionID := uuid.NewString()
	logger := c.logger.With(zap.String("session_id", sessionID), zap.String("task", item.Task))
	logger.Info("Session starting", zap.String("package", item.Package))

	if st := c.unlocker.Ensure(ctx); !st.Unlocked() {
		logger.Warn("Unlock precondition not met", zap.String("status", string(st.Status)), zap.String("reason", st.Reason))
		status := schemas.ResultFailed
		if st.Status == schemas.UnlockNeedUserAction {
			status = schemas.ResultNeedUserAction
		}
		return schemas.Result{Status: status, Message: "unlock: " + st.Reason}
	}

	pkg := item.Package
	if pkg == "" {
		pkg = c.cfg.TargetPackage
	}
	if pkg != "" {
		if res, ok := c.bringToForeground(ctx, pkg, logger); !ok {
			return res
		}
	}

	return c.loop(ctx, item, sessionID, logger)
}

// bringToForeground verifies the package is installed, launches it, and
// waits until it owns the focused window.
func (c *Controller) bringToForeground(ctx context.Context, pkg string, logger *zap.Logger) (schemas.Result, bool) {
	installed, err := c.input.AppInstalled(ctx, pkg)
	if err != nil {
		return schemas.Result{Status: schemas.ResultFailed, Message: fmt.Sprintf("query package %s: %v", pkg, err)}, false
	}
	if !installed {
		return schemas.Result{Status: schemas.ResultFailed, Message: fmt.Sprintf("%s not installed", pkg)}, false
	}

	if err := c.input.LaunchApp(ctx, pkg); err != nil {
		return schemas.Result{Status: schemas.ResultFailed, Message: fmt.Sprintf("launch %s: %v", pkg, err)}, false
	}

	deadline := time.Now().Add(c.cfg.AppWaitTimeout)
	for {
		focus, err := c.screen.Foreground(ctx)
		if err == nil && focus.Package == pkg {
			break
		}
		if time.Now().After(deadline) {
			return schemas.Result{Status: schemas.ResultFailed, Message: fmt.Sprintf("%s did not reach foreground", pkg)}, false
		}
		if err := c.sleep(ctx, c.cfg.AppPollInterval); err != nil {
			return schemas.Result{Status: schemas.ResultFailed, Message: err.Error()}, false
		}
	}

	// First frames after launch are often splash screens; give the app a
	// moment before the first capture.
	if err := c.sleep(ctx, c.cfg.AppSettleDelay); err != nil {
		return schemas.Result{Status: schemas.ResultFailed, Message: err.Error()}, false
	}
	logger.Info("Target app in foreground", zap.String("package", pkg))
	return schemas.Result{}, true
}

func (c *Controller) loop(ctx context.Context, item WorkItem, sessionID string, logger *zap.Logger) schemas.Result {
	var history []string
	consecutiveFailures := 0

	for step := 1; step <= c.cfg.StepBudget; step++ {
		if err := ctx.Err(); err != nil {
			return schemas.Result{Status: schemas.ResultFailed, Message: "cancelled: " + err.Error(), Steps: step - 1}
		}
		stepLogger := logger.With(zap.Int("step", step))

		scene, err := c.perceiver.Capture(ctx)
		if err != nil {
			stepLogger.Warn("Scene capture failed", zap.Error(err))
			consecutiveFailures++
			if c.failureCapHit(consecutiveFailures) {
				return schemas.Result{Status: schemas.ResultFailed, Message: "too many consecutive failures: " + err.Error(), Steps: step}
			}
			history = appendHistory(history, fmt.Sprintf("step %d: capture failed: %v", step, err))
			continue
		}

		req := schemas.NewDecisionRequest(scene, schemas.DecisionContext{
			Task:            item.Task,
			SessionID:       sessionID,
			Step:            step,
			PayloadRef:      item.PayloadRef,
			Caption:         item.Caption,
			PreviousActions: history,
		}, base64.StdEncoding.EncodeToString(scene.Screenshot))

		directive, err := c.decider.Decide(ctx, req)
		if err != nil {
			stepLogger.Error("Decision failed", zap.Error(err))
			return schemas.Result{Status: schemas.ResultFailed, Message: "decision: " + err.Error(), Steps: step}
		}

		outcome := c.executeSafely(ctx, directive, scene, stepLogger)
		history = appendHistory(history, summarize(step, directive, outcome))

		switch {
		case outcome.Status == schemas.OutcomeDone:
			stepLogger.Info("Task complete", zap.String("message", outcome.Message))
			return schemas.Result{Status: schemas.ResultSuccess, Message: outcome.Message, Steps: step}
		case outcome.Status == schemas.OutcomeError && !outcome.Recoverable:
			stepLogger.Error("Unrecoverable step error", zap.String("message", outcome.Message))
			return schemas.Result{Status: schemas.ResultFailed, Message: outcome.Message, Steps: step}
		case outcome.Status == schemas.OutcomeSuccess:
			consecutiveFailures = 0
		default:
			stepLogger.Warn("Step did not succeed",
				zap.String("status", string(outcome.Status)),
				zap.String("message", outcome.Message))
			consecutiveFailures++
			if c.failureCapHit(consecutiveFailures) {
				return schemas.Result{Status: schemas.ResultFailed, Message: "too many consecutive failures: " + outcome.Message, Steps: step}
			}
		}
	}

	return schemas.Result{Status: schemas.ResultFailed, Message: "step budget exceeded", Steps: c.cfg.StepBudget}
}

// executeSafely runs the actor with a panic barrier: a panicking action
// becomes a non-recoverable error outcome instead of tearing down the
// process.
func (c *Controller) executeSafely(ctx context.Context, d schemas.ActionDirective, scene *schemas.Scene, logger *zap.Logger) (outcome schemas.ExecutionOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during action execution", zap.Any("panic", r))
			outcome = schemas.Errorf(false, "panic during %s: %v", d.Action, r)
		}
	}()
	return c.actor.Execute(ctx, d, scene)
}

func (c *Controller) failureCapHit(n int) bool {
	return c.cfg.MaxConsecutiveFailures > 0 && n >= c.cfg.MaxConsecutiveFailures
}

func summarize(step int, d schemas.ActionDirective, o schemas.ExecutionOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d: %s", step, d.Action)
	if d.Reason != "" {
		fmt.Fprintf(&b, " (%s)", d.Reason)
	}
	fmt.Fprintf(&b, " -> %s", o.Status)
	if o.Message != "" {
		fmt.Fprintf(&b, ": %s", o.Message)
	}
	return b.String()
}

func appendHistory(history []string, entry string) []string {
	history = append(history, entry)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	return history
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
