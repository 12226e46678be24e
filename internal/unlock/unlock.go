// Package unlock establishes the session's precondition: an interactive,
// keyguard-free device. It wakes the display, clears swipe keyguards with a
// humanized gesture, and enters a configured credential for secure ones.
// Everything it cannot handle autonomously is reported as NEED_USER_ACTION
// rather than guessed at; a wrong PIN attempt can lock a device out.
package unlock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/humanizer"
)

// Controller drives the device from any lock state toward "interactive and
// unlocked".
type Controller struct {
	input  schemas.InputPort
	screen schemas.ScreenPort
	hum    *humanizer.Humanizer
	cfg    config.UnlockConfig
	logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController wires an unlock Controller.
func NewController(input schemas.InputPort, screen schemas.ScreenPort, hum *humanizer.Humanizer, cfg config.UnlockConfig, logger *zap.Logger) *Controller {
	return &Controller{
		input:  input,
		screen: screen,
		hum:    hum,
		cfg:    cfg,
		logger: logger.Named("unlock"),
		sleep:  sleepCtx,
	}
}

// Ensure brings the device to an unlocked, interactive state, or explains
// why it could not. An already-unlocked device is reported as such and no
// gesture is dispatched.
func (c *Controller) Ensure(ctx context.Context) schemas.UnlockState {
	if err := c.input.Available(ctx); err != nil {
		return schemas.UnlockState{
			Status: schemas.UnlockNeedUserAction,
			Reason: "device unreachable: " + err.Error(),
		}
	}

	info, err := c.input.LockState(ctx)
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "lock state query: " + err.Error()}
	}

	if !info.Interactive {
		if st, ok := c.wake(ctx); !ok {
			return st
		}
		info, err = c.input.LockState(ctx)
		if err != nil {
			return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "lock state query after wake: " + err.Error()}
		}
	}

	if !info.Locked {
		c.logger.Debug("Keyguard not showing, nothing to do")
		return schemas.UnlockState{Status: schemas.UnlockAlreadyUnlocked}
	}

	if info.Secured {
		return c.enterCredential(ctx)
	}
	return c.swipeClear(ctx)
}

// wake turns the display on and polls until it reports interactive.
func (c *Controller) wake(ctx context.Context) (schemas.UnlockState, bool) {
	c.logger.Debug("Display off, waking")
	if err := c.input.WakeDisplay(ctx); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "wake display: " + err.Error()}, false
	}
	ok, err := c.pollLock(ctx, c.cfg.WakeTimeout, c.cfg.WakePollInterval, func(i schemas.LockInfo) bool {
		return i.Interactive
	})
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "waiting for display: " + err.Error()}, false
	}
	if !ok {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "display did not become interactive"}, false
	}
	// The lockscreen UI needs a moment after power-on before it accepts input.
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: err.Error()}, false
	}
	return schemas.UnlockState{}, true
}

// swipeClear dismisses an unsecured keyguard with a humanized upward swipe
// through the center of the screen.
func (c *Controller) swipeClear(ctx context.Context) schemas.UnlockState {
	w, h, err := c.screen.ScreenSize(ctx)
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "screen size: " + err.Error()}
	}

	x := w / 2
	y1 := int(float64(h) * c.cfg.SwipeStartPct)
	y2 := int(float64(h) * c.cfg.SwipeEndPct)
	plan := c.hum.Swipe(x, y1, x, y2, 300*time.Millisecond)

	c.logger.Debug("Dismissing swipe keyguard",
		zap.Int("x", plan.X1), zap.Int("y1", plan.Y1), zap.Int("y2", plan.Y2))
	if err := c.input.Swipe(ctx, plan.X1, plan.Y1, plan.X2, plan.Y2, plan.Duration); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "swipe: " + err.Error()}
	}

	cleared, err := c.pollLock(ctx, c.cfg.SwipeClearTimeout, c.cfg.ClearPollInterval, func(i schemas.LockInfo) bool {
		return !i.Locked
	})
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "waiting for keyguard: " + err.Error()}
	}
	if !cleared {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "keyguard still showing after swipe"}
	}
	return schemas.UnlockState{Status: schemas.UnlockSuccess}
}

// enterCredential clears a secure keyguard by revealing the credential
// prompt and typing the configured PIN/password. Without a credential the
// controller refuses to guess.
func (c *Controller) enterCredential(ctx context.Context) schemas.UnlockState {
	if c.cfg.Credential == "" {
		return schemas.UnlockState{
			Status: schemas.UnlockNeedUserAction,
			Reason: "keyguard is secured and no credential is configured",
		}
	}

	// Swipe up first so the credential prompt is focused.
	if st := c.swipeToPrompt(ctx); st.Status == schemas.UnlockFailed {
		return st
	}

	if err := c.input.InsertText(ctx, c.cfg.Credential); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "enter credential: " + err.Error()}
	}
	if err := c.input.PressKey(ctx, schemas.KeyEnter); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "confirm credential: " + err.Error()}
	}

	cleared, err := c.pollLock(ctx, c.cfg.CredentialClearTimeout, c.cfg.ClearPollInterval, func(i schemas.LockInfo) bool {
		return !i.Locked
	})
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "waiting for keyguard: " + err.Error()}
	}
	if !cleared {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "keyguard still showing; credential likely rejected"}
	}
	return schemas.UnlockState{Status: schemas.UnlockSuccess}
}

// swipeToPrompt performs the reveal swipe before credential entry. A failed
// reveal is not fatal on its own; some lockscreens show the prompt directly.
func (c *Controller) swipeToPrompt(ctx context.Context) schemas.UnlockState {
	w, h, err := c.screen.ScreenSize(ctx)
	if err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "screen size: " + err.Error()}
	}
	x := w / 2
	plan := c.hum.Swipe(x, int(float64(h)*c.cfg.SwipeStartPct), x, int(float64(h)*c.cfg.SwipeEndPct), 300*time.Millisecond)
	if err := c.input.Swipe(ctx, plan.X1, plan.Y1, plan.X2, plan.Y2, plan.Duration); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: "reveal swipe: " + err.Error()}
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return schemas.UnlockState{Status: schemas.UnlockFailed, Reason: err.Error()}
	}
	return schemas.UnlockState{Status: schemas.UnlockSuccess}
}

// pollLock re-queries the lock state until done(info) holds or the timeout
// lapses. Returns false with a nil error on timeout.
func (c *Controller) pollLock(ctx context.Context, timeout, interval time.Duration, done func(schemas.LockInfo) bool) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		info, err := c.input.LockState(ctx)
		if err == nil && done(info) {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := c.sleep(ctx, interval); err != nil {
			return false, err
		}
	}
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
