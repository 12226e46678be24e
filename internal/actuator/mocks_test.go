package actuator

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
