// Package humanizer produces statistically varied, bounded perturbations of
// requested coordinates and timings so that synthetic input is not perfectly
// regular. It is a pure model: no I/O, no clock, state limited to its random
// source.
package humanizer

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// Default element size hint when a directive supplies none. Roughly a
// Material list row.
const (
	DefaultElementWidth  = 100
	DefaultElementHeight = 50
)

// TapPlan is the humanized realization of one tap: the final coordinates
// and the touch hold duration.
type TapPlan struct {
	X, Y     int
	Duration time.Duration
}

// SwipePlan is the humanized realization of one swipe gesture.
type SwipePlan struct {
	X1, Y1, X2, Y2 int
	Duration       time.Duration
}

// Humanizer draws gesture perturbations from its configured distributions.
// Safe for use by a single session; the internal mutex only guards the
// non-reentrant rand source.
type Humanizer struct {
	cfg config.HumanizerConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Humanizer. A nil rng gets a time-seeded source; tests inject
// a fixed seed instead.
func New(cfg config.HumanizerConfig, rng *rand.Rand) *Humanizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanizer{cfg: cfg, rng: rng}
}

// Tap perturbs a target point inside an element of the given size.
//
// Jitter scales with the element: sigma = size/divisor, so small targets get
// tight spread. A small directional bias is added on top. The result is
// clamped to the element's half-extent box around the original target; the
// humanized point never leaves the element it aims at.
func (h *Humanizer) Tap(x, y, w, ht int) TapPlan {
	if w <= 0 {
		w = DefaultElementWidth
	}
	if ht <= 0 {
		ht = DefaultElementHeight
	}

	h.mu.Lock()
	sigmaX := float64(w) / h.cfg.SigmaDivisor
	sigmaY := float64(ht) / h.cfg.SigmaDivisor
	dx := h.rng.NormFloat64()*sigmaX + h.cfg.BiasX + h.rng.NormFloat64()*h.cfg.BiasStdDev
	dy := h.rng.NormFloat64()*sigmaY + h.cfg.BiasY + h.rng.NormFloat64()*h.cfg.BiasStdDev
	duration := h.logNormalLocked(h.cfg.TapDuration)
	h.mu.Unlock()

	// Round before clamping: rounding a clamped float can cross the bound
	// when the half-extent is fractional (odd sizes), so the clamp has to be
	// the last operation, in integer space.
	return TapPlan{
		X:        clampInt(int(math.Round(float64(x)+dx)), x-w/2, x+w/2),
		Y:        clampInt(int(math.Round(float64(y)+dy)), y-ht/2, y+ht/2),
		Duration: duration,
	}
}

// Swipe perturbs a swipe path. The endpoint varies more than the start,
// matching natural gesture imprecision, and the duration is scaled by a
// uniform factor around the requested base.
func (h *Humanizer) Swipe(x1, y1, x2, y2 int, base time.Duration) SwipePlan {
	h.mu.Lock()
	defer h.mu.Unlock()

	scale := h.cfg.SwipeScaleMin + h.rng.Float64()*(h.cfg.SwipeScaleMax-h.cfg.SwipeScaleMin)
	return SwipePlan{
		X1:       x1 + int(math.Round(h.rng.NormFloat64()*h.cfg.SwipeStartJitter)),
		Y1:       y1 + int(math.Round(h.rng.NormFloat64()*h.cfg.SwipeStartJitter)),
		X2:       x2 + int(math.Round(h.rng.NormFloat64()*h.cfg.SwipeEndJitter)),
		Y2:       y2 + int(math.Round(h.rng.NormFloat64()*h.cfg.SwipeEndJitter)),
		Duration: time.Duration(float64(base) * scale),
	}
}

// PreActionDelay draws the pause taken before dispatching an action.
func (h *Humanizer) PreActionDelay() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logNormalLocked(h.cfg.PreDelay)
}

// PostActionDelay draws the pause taken after an action completes.
func (h *Humanizer) PostActionDelay() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logNormalLocked(h.cfg.PostDelay)
}

// logNormalLocked samples a log-normal duration parameterized by its mode
// and log-space dispersion, hard-clamped to the spec's bounds. Callers hold
// h.mu.
func (h *Humanizer) logNormalLocked(spec config.DelaySpec) time.Duration {
	// mode = exp(mu - sigma^2)  =>  mu = ln(mode) + sigma^2
	mu := math.Log(float64(spec.ModeMS)) + spec.Sigma*spec.Sigma
	sample := math.Exp(mu + spec.Sigma*h.rng.NormFloat64())
	clamped := clamp(sample, float64(spec.MinMS), float64(spec.MaxMS))
	return time.Duration(clamped * float64(time.Millisecond))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
