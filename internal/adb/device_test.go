package adb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
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

// fakeRunner records every command and replies from a canned script keyed on
// a joined-args substring.
type fakeRunner struct {
	calls   [][]string
	replies map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	joined := strings.Join(args, " ")
	for key, err := range f.errs {
		if strings.Contains(joined, key) {
			return nil, err
		}
	}
	for key, out := range f.replies {
		if strings.Contains(joined, key) {
			return out, nil
		}
	}
	return nil, nil
}

func (f *fakeRunner) lastCall() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func newFakeDevice(serial string, runner *fakeRunner) *Device {
	t := NewTransport(config.DeviceConfig{Serial: serial, CommandTimeout: time.Second}, observability.GetLogger())
	t.runner = runner
	return NewDevice(t, observability.GetLogger())
}

func TestTransport_SerialPrefix(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{"get-state": []byte("device\n")}}
	d := newFakeDevice("emulator-5554", runner)

	require.NoError(t, d.Available(context.Background()))
	assert.Equal(t, []string{"adb", "-s", "emulator-5554", "get-state"}, runner.lastCall())
}

func TestAvailable_WrongState(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{"get-state": []byte("unauthorized\n")}}
	d := newFakeDevice("", runner)

	err := d.Available(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestTap_DurationBecomesInPlaceSwipe(t *testing.T) {
	runner := &fakeRunner{}
	d := newFakeDevice("", runner)

	require.NoError(t, d.Tap(context.Background(), 540, 960, 120*time.Millisecond))
	assert.Equal(t,
		[]string{"adb", "shell", "input", "swipe", "540", "960", "540", "960", "120"},
		runner.lastCall())

	require.NoError(t, d.Tap(context.Background(), 10, 20, 0))
	assert.Equal(t,
		[]string{"adb", "shell", "input", "tap", "10", "20"},
		runner.lastCall())
}

func TestSwipe_DefaultDuration(t *testing.T) {
	runner := &fakeRunner{}
	d := newFakeDevice("", runner)

	require.NoError(t, d.Swipe(context.Background(), 1, 2, 3, 4, 0))
	assert.Equal(t,
		[]string{"adb", "shell", "input", "swipe", "1", "2", "3", "4", "300"},
		runner.lastCall())
}

func TestInsertText_Escaped(t *testing.T) {
	runner := &fakeRunner{}
	d := newFakeDevice("", runner)

	require.NoError(t, d.InsertText(context.Background(), "hi there"))
	assert.Equal(t, []string{"adb", "shell", "input", "text", "hi%sthere"}, runner.lastCall())

	// Empty text is a no-op.
	calls := len(runner.calls)
	require.NoError(t, d.InsertText(context.Background(), ""))
	assert.Len(t, runner.calls, calls)
}

func TestPressKey(t *testing.T) {
	runner := &fakeRunner{}
	d := newFakeDevice("", runner)

	require.NoError(t, d.PressKey(context.Background(), schemas.KeyBack))
	assert.Equal(t, []string{"adb", "shell", "input", "keyevent", "KEYCODE_BACK"}, runner.lastCall())

	assert.Error(t, d.PressKey(context.Background(), schemas.Key("warp")))
}

func TestAppInstalled(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{
		// The filter matches substrings, so the listing can carry near-misses.
		"pm list packages com.present": []byte("package:com.present\npackage:com.present.beta\n"),
		"pm list packages com.absent":  []byte(""),
		"pm list packages com.pres":    []byte("package:com.present\n"),
	}}
	d := newFakeDevice("", runner)

	ok, err := d.AppInstalled(context.Background(), "com.present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.AppInstalled(context.Background(), "com.absent")
	require.NoError(t, err)
	assert.False(t, ok)

	// A substring hit is not an exact package match.
	ok, err = d.AppInstalled(context.Background(), "com.pres")
	require.NoError(t, err)
	assert.False(t, ok)
}

// A transport failure must surface as an error, never as "not installed".
func TestAppInstalled_TransportErrorPropagates(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"pm list packages": errors.New("error: device offline"),
	}}
	d := newFakeDevice("", runner)

	_, err := d.AppInstalled(context.Background(), "com.example.app")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device offline")
}

func TestLaunchApp(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{
		"monkey -p com.good": []byte("Events injected: 1\n"),
		"monkey -p com.bad":  []byte("No activities found to run\n"),
	}}
	d := newFakeDevice("", runner)

	require.NoError(t, d.LaunchApp(context.Background(), "com.good"))
	assert.Error(t, d.LaunchApp(context.Background(), "com.bad"))
}

func TestCaptureLayout(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{
		"uiautomator dump": []byte("UI hierchary dumped to: " + layoutDumpPath + "\n"),
		"cat " + layoutDumpPath: []byte(`<?xml version='1.0'?><hierarchy/>`),
	}}
	d := newFakeDevice("", runner)

	out, err := d.CaptureLayout(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<hierarchy")
}

func TestLockState(t *testing.T) {
	runner := &fakeRunner{replies: map[string][]byte{
		"dumpsys power":         []byte("mWakefulness=Awake\n"),
		"dumpsys window policy": []byte("keyguardShowing=true\nmKeyguardSecure=true\n"),
	}}
	d := newFakeDevice("", runner)

	info, err := d.LockState(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Interactive)
	assert.True(t, info.Locked)
	assert.True(t, info.Secured)
}
