package schemas

import (
	"context"
	"time"
)

// Key identifies a hardware/navigation key the actuation surface can press.
type Key string

const (
	KeyBack   Key = "back"
	KeyEnter  Key = "enter"
	KeyWakeup Key = "wakeup"
	KeyHome   Key = "home"
)

// LockInfo is the device's display/keyguard state as reported by the
// actuation surface.
type LockInfo struct {
	// Interactive is true when the display is on and accepting input.
	Interactive bool
	// Locked is true while the keyguard is showing.
	Locked bool
	// Secured is true when dismissing the keyguard requires a credential
	// (PIN/password) rather than a plain swipe.
	Secured bool
}

// AppFocus identifies the currently focused application window.
type AppFocus struct {
	Package  string
	Activity string
}

// ScreenPort is the perception capability: it reads the device's current UI
// without mutating it. The core never depends on the concrete transport
// behind it.
type ScreenPort interface {
	// CaptureLayout returns the raw XML dump of the visible UI hierarchy.
	CaptureLayout(ctx context.Context) ([]byte, error)
	// CaptureScreenshot returns the raw screenshot bytes (PNG).
	CaptureScreenshot(ctx context.Context) ([]byte, error)
	// Foreground returns the focused application and, when known, its
	// activity.
	Foreground(ctx context.Context) (AppFocus, error)
	// ScreenSize returns the display dimensions in pixels.
	ScreenSize(ctx context.Context) (width, height int, err error)
}

// InputPort is the actuation capability: synthetic gestures, text entry,
// key presses, app lifecycle, and the lock-state queries the unlock
// controller needs. One session owns the port exclusively for its lifetime;
// no two components may hold it mid-gesture.
type InputPort interface {
	// Available verifies the capability can be reached at all. A non-nil
	// error means automation cannot proceed without user intervention.
	Available(ctx context.Context) error
	// Tap dispatches a touch at (x, y) held for the given duration.
	Tap(ctx context.Context, x, y int, duration time.Duration) error
	// Swipe dispatches a drag gesture along the given path.
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	// InsertText types the given text into the focused field.
	InsertText(ctx context.Context, text string) error
	// PressKey presses a navigation/hardware key.
	PressKey(ctx context.Context, key Key) error
	// AppInstalled reports whether the package resolves on the device.
	AppInstalled(ctx context.Context, pkg string) (bool, error)
	// LaunchApp foregrounds the given package.
	LaunchApp(ctx context.Context, pkg string) error
	// WakeDisplay requests the display be turned on.
	WakeDisplay(ctx context.Context) error
	// LockState reports the current display/keyguard state.
	LockState(ctx context.Context) (LockInfo, error)
}
