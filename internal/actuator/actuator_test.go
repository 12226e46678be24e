package actuator

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/humanizer"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func TestMain(m *testing.M) {
	logCfg := config.NewDefaultConfig().Logger
	logCfg.Level = "debug"
	logCfg.ServiceName = "test-suite"
	observability.Initialize(logCfg, zapcore.Lock(os.Stdout))

	code := m.Run()

	observability.Sync()
	observability.ResetForTest()
	os.Exit(code)
}

func intp(v int) *int { return &v }

// newTestExecutor returns an executor with real humanization but recorded,
// instant sleeps.
func newTestExecutor(input schemas.InputPort) (*Executor, *[]time.Duration) {
	appCfg := config.NewDefaultConfig()
	appCfg.Session.FallbackPackage = "com.fallback.app"
	appCfg.Session.AppSettleDelay = 2 * time.Second

	hum := humanizer.New(appCfg.Humanizer, rand.New(rand.NewSource(1)))
	e := NewExecutor(input, hum, appCfg.Session, observability.GetLogger())

	var slept []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return e, &slept
}

func TestExecute_UnknownAction(t *testing.T) {
	e, _ := newTestExecutor(new(MockInput))

	outcome := e.Execute(context.Background(), schemas.ActionDirective{Action: "teleport"}, nil)

	assert.Equal(t, schemas.OutcomeError, outcome.Status)
	assert.False(t, outcome.Recoverable, "unknown actions are protocol violations")
	assert.Contains(t, outcome.Message, "teleport")
}

func TestExecute_Finish(t *testing.T) {
	input := new(MockInput)
	e, slept := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action:  schemas.ActionFinish,
		Message: "cart checked out",
	}, nil)

	assert.Equal(t, schemas.OutcomeDone, outcome.Status)
	assert.Equal(t, "cart checked out", outcome.Message)
	assert.Empty(t, *slept, "terminal directives take no delays")
	input.AssertNotCalled(t, "Tap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_ErrorDirective(t *testing.T) {
	e, _ := newTestExecutor(new(MockInput))

	recoverable := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionError, Message: "transient popup storm", Recoverable: true,
	}, nil)
	assert.Equal(t, schemas.OutcomeError, recoverable.Status)
	assert.True(t, recoverable.Recoverable)

	fatal := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionError, Message: "account banned",
	}, nil)
	assert.True(t, fatal.Terminal())
}

func TestExecute_Tap(t *testing.T) {
	input := new(MockInput)
	input.On("Tap", mock.Anything,
		mock.MatchedBy(func(x int) bool { return x >= 490 && x <= 590 }),
		mock.MatchedBy(func(y int) bool { return y >= 935 && y <= 985 }),
		mock.Anything).Return(nil)
	e, slept := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionTap,
		X:      intp(540), Y: intp(960),
		ElementWidth: 100, ElementHeight: 50,
	}, nil)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)
	// Pre and post delay.
	assert.Len(t, *slept, 2)
}

func TestExecute_Tap_MissingCoordinates(t *testing.T) {
	input := new(MockInput)
	e, _ := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{Action: schemas.ActionTap}, nil)

	assert.Equal(t, schemas.OutcomeFailed, outcome.Status)
	input.AssertNotCalled(t, "Tap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_Swipe_MissingEndpoints(t *testing.T) {
	e, _ := newTestExecutor(new(MockInput))

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionSwipe, StartX: intp(100), StartY: intp(200),
	}, nil)
	assert.Equal(t, schemas.OutcomeFailed, outcome.Status)
}

func TestExecute_TypeText(t *testing.T) {
	input := new(MockInput)
	input.On("InsertText", mock.Anything, "hello world").Return(nil)
	e, _ := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionTypeText, Text: "hello world",
	}, nil)

	assert.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)

	missing := e.Execute(context.Background(), schemas.ActionDirective{Action: schemas.ActionTypeText}, nil)
	assert.Equal(t, schemas.OutcomeFailed, missing.Status)
}

func TestExecute_WaitAfterOverridesPostDelay(t *testing.T) {
	input := new(MockInput)
	input.On("PressKey", mock.Anything, schemas.KeyBack).Return(nil)
	e, slept := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action:      schemas.ActionBack,
		WaitAfterMS: 1234,
	}, nil)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	require.Len(t, *slept, 2)
	assert.Equal(t, 1234*time.Millisecond, (*slept)[1])
}

// A failed gesture still paces the loop: the post-action delay applies to
// every non-terminal outcome, not just successful ones.
func TestExecute_FailedStepStillDelays(t *testing.T) {
	input := new(MockInput)
	input.On("Swipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("injection blocked"))
	e, slept := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionSwipe,
		StartX: intp(500), StartY: intp(1600), EndX: intp(500), EndY: intp(400),
		WaitAfterMS: 500,
	}, nil)

	require.Equal(t, schemas.OutcomeFailed, outcome.Status)
	require.Len(t, *slept, 2, "failed steps keep both pre and post delays")
	assert.Equal(t, 500*time.Millisecond, (*slept)[1])
}

func TestExecute_Wait_FallsBackToWaitAfter(t *testing.T) {
	e, slept := newTestExecutor(new(MockInput))

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action:      schemas.ActionWait,
		WaitAfterMS: 250,
	}, nil)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	// pre delay, the wait itself, post delay
	require.Len(t, *slept, 3)
	assert.Equal(t, 250*time.Millisecond, (*slept)[1], "wait_after stands in for a missing duration")
}

func TestExecute_LaunchApp_FallbackPackage(t *testing.T) {
	input := new(MockInput)
	input.On("LaunchApp", mock.Anything, "com.fallback.app").Return(nil)
	e, slept := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{Action: schemas.ActionLaunchApp}, nil)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)
	// pre delay, settle, post delay
	require.Len(t, *slept, 3)
	assert.Equal(t, 2*time.Second, (*slept)[1])
}

// The directive's package is tried first; the configured fallback is the
// second stage, and the step fails only when neither resolves.
func TestExecute_LaunchApp_TwoStageResolution(t *testing.T) {
	input := new(MockInput)
	input.On("LaunchApp", mock.Anything, "com.primary.app").Return(errors.New("no launcher activity"))
	input.On("LaunchApp", mock.Anything, "com.fallback.app").Return(nil)
	e, _ := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionLaunchApp, PackageName: "com.primary.app",
	}, nil)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)
}

func TestExecute_LaunchApp_NeitherResolves(t *testing.T) {
	input := new(MockInput)
	input.On("LaunchApp", mock.Anything, "com.primary.app").Return(errors.New("no launcher activity"))
	input.On("LaunchApp", mock.Anything, "com.fallback.app").Return(errors.New("no launcher activity"))
	e, _ := newTestExecutor(input)

	outcome := e.Execute(context.Background(), schemas.ActionDirective{
		Action: schemas.ActionLaunchApp, PackageName: "com.primary.app",
	}, nil)

	assert.Equal(t, schemas.OutcomeFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "app not found")
}

func TestExecute_DismissPopup_TapsDismissalElement(t *testing.T) {
	input := new(MockInput)
	input.On("Tap", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	e, _ := newTestExecutor(input)

	scene := &schemas.Scene{Elements: []schemas.Element{
		{Index: 0, Text: "Subscribe now!", Clickable: true, Enabled: true,
			Bounds: schemas.Bounds{Left: 100, Top: 100, Right: 900, Bottom: 200}},
		{Index: 1, Text: "Not now", Clickable: true, Enabled: true,
			Bounds: schemas.Bounds{Left: 100, Top: 300, Right: 500, Bottom: 400}},
	}}

	outcome := e.Execute(context.Background(), schemas.ActionDirective{Action: schemas.ActionDismissPopup}, scene)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)
	input.AssertNotCalled(t, "PressKey", mock.Anything, mock.Anything)
}

func TestExecute_DismissPopup_FallsBackToBack(t *testing.T) {
	input := new(MockInput)
	input.On("PressKey", mock.Anything, schemas.KeyBack).Return(nil)
	e, _ := newTestExecutor(input)

	scene := &schemas.Scene{Elements: []schemas.Element{
		{Index: 0, Text: "Article headline", Clickable: false, Enabled: true},
	}}

	outcome := e.Execute(context.Background(), schemas.ActionDirective{Action: schemas.ActionDismissPopup}, scene)

	require.Equal(t, schemas.OutcomeSuccess, outcome.Status)
	input.AssertExpectations(t)
}
