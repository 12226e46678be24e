package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// layoutDumpPath is where uiautomator writes the hierarchy on-device before
// it is read back. /sdcard is world-writable on every supported API level.
const layoutDumpPath = "/sdcard/droidpilot_ui.xml"

// keycodes maps the port's key names onto Android keyevent constants.
var keycodes = map[schemas.Key]string{
	schemas.KeyBack:   "KEYCODE_BACK",
	schemas.KeyEnter:  "KEYCODE_ENTER",
	schemas.KeyWakeup: "KEYCODE_WAKEUP",
	schemas.KeyHome:   "KEYCODE_HOME",
}

// Device implements both capability ports (schemas.ScreenPort and
// schemas.InputPort) on top of an adb Transport.
type Device struct {
	t      *Transport
	logger *zap.Logger
}

// Compile-time port conformance.
var (
	_ schemas.ScreenPort = (*Device)(nil)
	_ schemas.InputPort  = (*Device)(nil)
)

// NewDevice wraps a transport in the port implementations.
func NewDevice(t *Transport, logger *zap.Logger) *Device {
	return &Device{t: t, logger: logger.Named("device")}
}

// Available checks that the device is connected and authorized.
func (d *Device) Available(ctx context.Context) error {
	out, err := d.t.Command(ctx, "get-state")
	if err != nil {
		return fmt.Errorf("adb unreachable: %w", err)
	}
	state := strings.TrimSpace(string(out))
	if state != "device" {
		return fmt.Errorf("device not ready: adb state %q", state)
	}
	return nil
}

// CaptureLayout dumps the current UI hierarchy and reads it back. The dump
// goes through an on-device file because `uiautomator dump /dev/tty`
// interleaves its status line with the XML on most builds.
func (d *Device) CaptureLayout(ctx context.Context) ([]byte, error) {
	if _, err := d.t.Shell(ctx, "uiautomator", "dump", "--compressed", layoutDumpPath); err != nil {
		return nil, fmt.Errorf("uiautomator dump failed: %w", err)
	}
	out, err := d.t.ExecOut(ctx, "cat", layoutDumpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout dump: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("layout dump is empty")
	}
	return out, nil
}

// CaptureScreenshot grabs the framebuffer as PNG bytes.
func (d *Device) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	out, err := d.t.ExecOut(ctx, "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("screencap produced no data")
	}
	return out, nil
}

// Foreground returns the application holding window focus.
func (d *Device) Foreground(ctx context.Context) (schemas.AppFocus, error) {
	out, err := d.t.Shell(ctx, "dumpsys", "window")
	if err != nil {
		return schemas.AppFocus{}, fmt.Errorf("dumpsys window failed: %w", err)
	}
	focus := parseFocus(string(out))
	if focus.Package == "" {
		return schemas.AppFocus{}, fmt.Errorf("no focused application found")
	}
	return focus, nil
}

// ScreenSize reports the physical display dimensions.
func (d *Device) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := d.t.Shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, fmt.Errorf("wm size failed: %w", err)
	}
	w, h, ok := parseScreenSize(string(out))
	if !ok {
		return 0, 0, fmt.Errorf("unparseable wm size output: %q", strings.TrimSpace(string(out)))
	}
	return w, h, nil
}

// Tap dispatches a touch at (x, y). A held tap is expressed as a zero-length
// swipe because `input tap` cannot carry a duration.
func (d *Device) Tap(ctx context.Context, x, y int, duration time.Duration) error {
	ms := int(duration / time.Millisecond)
	var err error
	if ms > 0 {
		_, err = d.t.Shell(ctx, "input", "swipe",
			strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(ms))
	} else {
		_, err = d.t.Shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	}
	if err != nil {
		return fmt.Errorf("tap dispatch failed: %w", err)
	}
	return nil
}

// Swipe dispatches a drag along the given path.
func (d *Device) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	ms := int(duration / time.Millisecond)
	if ms <= 0 {
		ms = 300
	}
	_, err := d.t.Shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(ms))
	if err != nil {
		return fmt.Errorf("swipe dispatch failed: %w", err)
	}
	return nil
}

// InsertText types into the focused field. The text is escaped for the
// `input text` argument syntax, which has no quoting of its own.
func (d *Device) InsertText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	_, err := d.t.Shell(ctx, "input", "text", escapeInputText(text))
	if err != nil {
		return fmt.Errorf("text entry failed: %w", err)
	}
	return nil
}

// PressKey presses a navigation/hardware key.
func (d *Device) PressKey(ctx context.Context, key schemas.Key) error {
	code, ok := keycodes[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	if _, err := d.t.Shell(ctx, "input", "keyevent", code); err != nil {
		return fmt.Errorf("keyevent %s failed: %w", code, err)
	}
	return nil
}

// AppInstalled reports whether the package resolves on the device. It goes
// through `pm list packages`, which exits zero whether or not the package
// exists, so a command error is always a real transport failure and never
// mistaken for a missing package.
func (d *Device) AppInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := d.t.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, fmt.Errorf("pm list packages failed: %w", err)
	}
	// The filter argument matches substrings; require an exact line.
	want := "package:" + pkg
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == want {
			return true, nil
		}
	}
	return false, nil
}

// LaunchApp foregrounds the package's launcher activity via monkey, which
// resolves the main intent without needing the activity name.
func (d *Device) LaunchApp(ctx context.Context, pkg string) error {
	out, err := d.t.Shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return fmt.Errorf("launch of %s failed: %w", pkg, err)
	}
	if strings.Contains(string(out), "No activities found") {
		return fmt.Errorf("launch of %s failed: no launcher activity", pkg)
	}
	d.logger.Debug("app launch dispatched", zap.String("package", pkg))
	return nil
}

// WakeDisplay turns the display on. KEYCODE_WAKEUP (unlike KEYCODE_POWER)
// never toggles an already-awake display off.
func (d *Device) WakeDisplay(ctx context.Context) error {
	return d.PressKey(ctx, schemas.KeyWakeup)
}

// LockState reads the display and keyguard state from dumpsys.
func (d *Device) LockState(ctx context.Context) (schemas.LockInfo, error) {
	powerOut, err := d.t.Shell(ctx, "dumpsys", "power")
	if err != nil {
		return schemas.LockInfo{}, fmt.Errorf("dumpsys power failed: %w", err)
	}
	windowOut, err := d.t.Shell(ctx, "dumpsys", "window", "policy")
	if err != nil {
		return schemas.LockInfo{}, fmt.Errorf("dumpsys window policy failed: %w", err)
	}
	return parseLockInfo(string(powerOut), string(windowOut)), nil
}
