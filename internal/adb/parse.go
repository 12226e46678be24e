package adb

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

var (
	// mCurrentFocus=Window{74dcc52 u0 com.example.app/com.example.app.MainActivity}
	focusedWindowRegex = regexp.MustCompile(`m(?:CurrentFocus|FocusedApp)=\S+(?:\s+\S+)*\s+([\w.]+)/([\w.$]+)[\s}]`)
	// Physical size: 1080x2340
	screenSizeRegex = regexp.MustCompile(`(?:Override size|Physical size):\s*(\d+)x(\d+)`)
)

// parseFocus extracts the focused application from `dumpsys window` output.
// Returns the zero value when no app window has focus.
func parseFocus(out string) schemas.AppFocus {
	m := focusedWindowRegex.FindStringSubmatch(out)
	if m == nil {
		return schemas.AppFocus{}
	}
	return schemas.AppFocus{Package: m[1], Activity: m[2]}
}

// parseScreenSize extracts the display dimensions from `wm size` output.
// An override size (set by `wm size WxH`) takes precedence over physical.
func parseScreenSize(out string) (w, h int, ok bool) {
	var physW, physH int
	var havePhys bool
	for _, line := range strings.Split(out, "\n") {
		m := screenSizeRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pw, err1 := strconv.Atoi(m[1])
		ph, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		if strings.Contains(line, "Override") {
			return pw, ph, true
		}
		physW, physH, havePhys = pw, ph, true
	}
	return physW, physH, havePhys
}

// parseLockInfo combines `dumpsys power` and `dumpsys window policy` output
// into a LockInfo. The token names moved around across Android releases, so
// several spellings are accepted for each field.
func parseLockInfo(powerOut, windowOut string) schemas.LockInfo {
	info := schemas.LockInfo{}

	info.Interactive = strings.Contains(powerOut, "mWakefulness=Awake") ||
		strings.Contains(powerOut, "mInteractive=true") ||
		strings.Contains(powerOut, "Display Power: state=ON")

	info.Locked = containsToken(windowOut,
		"mDreamingLockscreen=true", "keyguardShowing=true", "isStatusBarKeyguard=true", "showing=true")

	info.Secured = containsToken(windowOut,
		"mKeyguardSecure=true", "isKeyguardSecure=true", "secure=true")

	return info
}

// containsToken reports whether any of the candidate tokens appears in out,
// matched on word boundaries so "secure=true" does not match
// "insecure=true".
func containsToken(out string, tokens ...string) bool {
	for _, tok := range tokens {
		idx := 0
		for {
			i := strings.Index(out[idx:], tok)
			if i < 0 {
				break
			}
			abs := idx + i
			if abs == 0 || !isWordByte(out[abs-1]) {
				return true
			}
			idx = abs + len(tok)
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// inputTextReplacer escapes characters that `input text` would otherwise
// hand to the shell or drop. Spaces become %s per the input tool's syntax.
var inputTextReplacer = strings.NewReplacer(
	`\`, `\\`,
	` `, `%s`,
	`"`, `\"`,
	`'`, `\'`,
	"`", "\\`",
	`&`, `\&`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	`;`, `\;`,
	`(`, `\(`,
	`)`, `\)`,
	`$`, `\$`,
	`*`, `\*`,
	`~`, `\~`,
)

// escapeInputText prepares text for `adb shell input text`.
func escapeInputText(text string) string {
	return inputTextReplacer.Replace(text)
}
