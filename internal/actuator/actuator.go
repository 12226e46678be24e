// Package actuator translates decision directives into device input. Every
// directive is validated, humanized, dispatched, and coerced into a single
// ExecutionOutcome; the actuator never panics outward and never returns a
// bare error for a malformed directive.
package actuator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/humanizer"
)

// dismissalTexts are checked, in order, against visible clickable elements
// when handling a dismiss_popup directive. Lowercase for comparison.
var dismissalTexts = []string{
	"not now", "no thanks", "skip", "later", "maybe later",
	"dismiss", "close", "cancel", "got it", "ok", "deny",
}

const defaultWaitMS = 1000

// Executor drives an InputPort with humanized gestures.
type Executor struct {
	input  schemas.InputPort
	hum    *humanizer.Humanizer
	logger *zap.Logger

	targetPackage   string
	fallbackPackage string
	appSettleDelay  time.Duration

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor wires an Executor. The session config supplies the launch
// fallback package and post-launch settle delay.
func NewExecutor(input schemas.InputPort, hum *humanizer.Humanizer, cfg config.SessionConfig, logger *zap.Logger) *Executor {
	return &Executor{
		input:           input,
		hum:             hum,
		logger:          logger.Named("actuator"),
		targetPackage:   cfg.TargetPackage,
		fallbackPackage: cfg.FallbackPackage,
		appSettleDelay:  cfg.AppSettleDelay,
		sleep:           sleepCtx,
	}
}

// Execute performs one directive against the current scene and reports the
// outcome. Malformed directives fail the step (recoverable); an action kind
// the executor does not know is a protocol breach and aborts the session.
func (e *Executor) Execute(ctx context.Context, d schemas.ActionDirective, scene *schemas.Scene) schemas.ExecutionOutcome {
	if !d.Action.Known() {
		return schemas.Errorf(false, "unknown action %q from decision service", d.Action)
	}

	e.logger.Debug("Executing directive",
		zap.String("action", string(d.Action)),
		zap.String("reason", d.Reason))

	// Terminal directives take no device input and no delays.
	switch d.Action {
	case schemas.ActionFinish:
		msg := d.Message
		if msg == "" {
			msg = d.Reason
		}
		return schemas.DoneOutcome(msg)
	case schemas.ActionError:
		return schemas.Errorf(d.Recoverable, "decision service reported: %s", d.Message)
	}

	if err := e.sleep(ctx, e.hum.PreActionDelay()); err != nil {
		return schemas.Errorf(false, "cancelled before action: %v", err)
	}

	outcome := e.dispatch(ctx, d, scene)
	if outcome.Terminal() {
		return outcome
	}

	// Both successful and failed steps pace the loop; only terminal outcomes
	// skip the delay.
	post := e.hum.PostActionDelay()
	if d.WaitAfterMS > 0 {
		post = time.Duration(d.WaitAfterMS) * time.Millisecond
	}
	if err := e.sleep(ctx, post); err != nil {
		return schemas.Errorf(false, "cancelled after action: %v", err)
	}
	return outcome
}

func (e *Executor) dispatch(ctx context.Context, d schemas.ActionDirective, scene *schemas.Scene) schemas.ExecutionOutcome {
	switch d.Action {
	case schemas.ActionTap:
		return e.tap(ctx, d)
	case schemas.ActionSwipe:
		return e.swipe(ctx, d)
	case schemas.ActionTypeText:
		return e.typeText(ctx, d)
	case schemas.ActionWait:
		return e.wait(ctx, d)
	case schemas.ActionBack:
		return e.pressBack(ctx)
	case schemas.ActionLaunchApp:
		return e.launchApp(ctx, d)
	case schemas.ActionDismissPopup:
		return e.dismissPopup(ctx, scene)
	default:
		return schemas.Errorf(false, "unhandled action %q", d.Action)
	}
}

func (e *Executor) tap(ctx context.Context, d schemas.ActionDirective) schemas.ExecutionOutcome {
	if d.X == nil || d.Y == nil {
		return schemas.Failedf("tap directive missing coordinates")
	}
	plan := e.hum.Tap(*d.X, *d.Y, d.ElementWidth, d.ElementHeight)
	if err := e.input.Tap(ctx, plan.X, plan.Y, plan.Duration); err != nil {
		return schemas.Failedf("tap at (%d,%d): %v", plan.X, plan.Y, err)
	}
	return schemas.Continue()
}

func (e *Executor) swipe(ctx context.Context, d schemas.ActionDirective) schemas.ExecutionOutcome {
	if d.StartX == nil || d.StartY == nil || d.EndX == nil || d.EndY == nil {
		return schemas.Failedf("swipe directive missing endpoints")
	}
	base := time.Duration(d.DurationMS) * time.Millisecond
	if base <= 0 {
		base = 300 * time.Millisecond
	}
	plan := e.hum.Swipe(*d.StartX, *d.StartY, *d.EndX, *d.EndY, base)
	if err := e.input.Swipe(ctx, plan.X1, plan.Y1, plan.X2, plan.Y2, plan.Duration); err != nil {
		return schemas.Failedf("swipe: %v", err)
	}
	return schemas.Continue()
}

func (e *Executor) typeText(ctx context.Context, d schemas.ActionDirective) schemas.ExecutionOutcome {
	if d.Text == "" {
		return schemas.Failedf("type_text directive missing text")
	}
	if err := e.input.InsertText(ctx, d.Text); err != nil {
		return schemas.Failedf("insert text: %v", err)
	}
	return schemas.Continue()
}

func (e *Executor) wait(ctx context.Context, d schemas.ActionDirective) schemas.ExecutionOutcome {
	ms := d.DurationMS
	if ms <= 0 {
		ms = d.WaitAfterMS
	}
	if ms <= 0 {
		ms = defaultWaitMS
	}
	if err := e.sleep(ctx, time.Duration(ms)*time.Millisecond); err != nil {
		return schemas.Errorf(false, "cancelled during wait: %v", err)
	}
	return schemas.Continue()
}

func (e *Executor) pressBack(ctx context.Context) schemas.ExecutionOutcome {
	if err := e.input.PressKey(ctx, schemas.KeyBack); err != nil {
		return schemas.Failedf("press back: %v", err)
	}
	return schemas.Continue()
}

// launchApp resolves the package in two stages: the directive's package (or
// the configured target when the directive carries none) first, then the
// configured fallback. Only when no candidate resolves does the step fail.
func (e *Executor) launchApp(ctx context.Context, d schemas.ActionDirective) schemas.ExecutionOutcome {
	primary := d.PackageName
	if primary == "" {
		primary = e.targetPackage
	}

	var candidates []string
	if primary != "" {
		candidates = append(candidates, primary)
	}
	if e.fallbackPackage != "" && e.fallbackPackage != primary {
		candidates = append(candidates, e.fallbackPackage)
	}
	if len(candidates) == 0 {
		return schemas.Failedf("launch_app directive missing package name")
	}

	var lastErr error
	for _, pkg := range candidates {
		if err := e.input.LaunchApp(ctx, pkg); err != nil {
			e.logger.Debug("Launch candidate failed", zap.String("package", pkg), zap.Error(err))
			lastErr = err
			continue
		}
		// Let the activity transition finish before the next capture.
		if err := e.sleep(ctx, e.appSettleDelay); err != nil {
			return schemas.Errorf(false, "cancelled during app settle: %v", err)
		}
		return schemas.Continue()
	}
	return schemas.Failedf("app not found: %v", lastErr)
}

// dismissPopup looks for a common dismissal affordance in the scene and taps
// it; when no candidate exists it falls back to the back key, which closes
// most dialogs.
func (e *Executor) dismissPopup(ctx context.Context, scene *schemas.Scene) schemas.ExecutionOutcome {
	if scene != nil {
		if el := findDismissal(scene.Elements); el != nil {
			cx, cy := el.Bounds.Center()
			plan := e.hum.Tap(cx, cy, el.Bounds.Width(), el.Bounds.Height())
			if err := e.input.Tap(ctx, plan.X, plan.Y, plan.Duration); err != nil {
				return schemas.Failedf("dismiss tap: %v", err)
			}
			return schemas.Continue()
		}
	}
	return e.pressBack(ctx)
}

func findDismissal(elements []schemas.Element) *schemas.Element {
	for _, want := range dismissalTexts {
		for i := range elements {
			el := &elements[i]
			if !el.Clickable || !el.Enabled {
				continue
			}
			label := strings.ToLower(strings.TrimSpace(el.Text))
			if label == "" {
				label = strings.ToLower(strings.TrimSpace(el.ContentDesc))
			}
			if label == want {
				return el
			}
		}
	}
	return nil
}

// sleepCtx waits for d or until the context ends.
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
