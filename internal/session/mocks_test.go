package session

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// -- Perceiver Mock --

type MockPerceiver struct {
	mock.Mock
}

func (m *MockPerceiver) Capture(ctx context.Context) (*schemas.Scene, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.Scene), args.Error(1)
}

// -- Oracle Mock --

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.ActionDirective, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schemas.ActionDirective), args.Error(1)
}

// -- Actor Mock --

type MockActor struct {
	mock.Mock
}

func (m *MockActor) Execute(ctx context.Context, d schemas.ActionDirective, scene *schemas.Scene) schemas.ExecutionOutcome {
	args := m.Called(ctx, d, scene)
	return args.Get(0).(schemas.ExecutionOutcome)
}

// PanicActor always panics; it exercises the session's panic barrier.
type PanicActor struct{}

func (PanicActor) Execute(context.Context, schemas.ActionDirective, *schemas.Scene) schemas.ExecutionOutcome {
	panic("injector exploded")
}

// -- Unlocker Mock --

type MockUnlocker struct {
	mock.Mock
}

func (m *MockUnlocker) Ensure(ctx context.Context) schemas.UnlockState {
	args := m.Called(ctx)
	return args.Get(0).(schemas.UnlockState)
}

// -- Input Port Mock --

type MockInput struct {
	mock.Mock
}

func (m *MockInput) Available(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInput) Tap(ctx context.Context, x, y int, duration time.Duration) error {
	args := m.Called(ctx, x, y, duration)
	return args.Error(0)
}

func (m *MockInput) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	args := m.Called(ctx, x1, y1, x2, y2, duration)
	return args.Error(0)
}

func (m *MockInput) InsertText(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockInput) PressKey(ctx context.Context, key schemas.Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockInput) AppInstalled(ctx context.Context, pkg string) (bool, error) {
	args := m.Called(ctx, pkg)
	return args.Bool(0), args.Error(1)
}

func (m *MockInput) LaunchApp(ctx context.Context, pkg string) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockInput) WakeDisplay(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInput) LockState(ctx context.Context) (schemas.LockInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.LockInfo), args.Error(1)
}

// -- Screen Port Mock --

type MockScreen struct {
	mock.Mock
}

func (m *MockScreen) CaptureLayout(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockScreen) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockScreen) Foreground(ctx context.Context) (schemas.AppFocus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schemas.AppFocus), args.Error(1)
}

func (m *MockScreen) ScreenSize(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}
