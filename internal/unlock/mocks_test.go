package unlock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// -- Input Port Mock --

// MockInput mocks the schemas.InputPort interface.
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

// MockScreen mocks the schemas.ScreenPort interface.
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
