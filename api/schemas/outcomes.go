package schemas

import "fmt"

// OutcomeStatus classifies the result of executing one ActionDirective.
type OutcomeStatus string

const (
	// OutcomeSuccess means the action was dispatched and the loop continues.
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	// OutcomeDone is terminal: the decision service declared the task complete.
	OutcomeDone OutcomeStatus = "DONE"
	// OutcomeFailed is a non-fatal, per-step failure; the loop continues and
	// the decision service is expected to adapt on the next scene.
	OutcomeFailed OutcomeStatus = "FAILED"
	// OutcomeError is a classified error; Recoverable decides whether the
	// session continues or terminates.
	OutcomeError OutcomeStatus = "ERROR"
)

// ExecutionOutcome is the tagged result of applying one directive. Consumers
// must switch exhaustively on Status.
type ExecutionOutcome struct {
	Status      OutcomeStatus
	Message     string
	Recoverable bool
}

// Continue returns a success outcome.
func Continue() ExecutionOutcome {
	return ExecutionOutcome{Status: OutcomeSuccess}
}

// DoneOutcome returns the terminal completion outcome.
func DoneOutcome(msg string) ExecutionOutcome {
	return ExecutionOutcome{Status: OutcomeDone, Message: msg}
}

// Failedf returns a non-fatal per-step failure outcome.
func Failedf(format string, args ...any) ExecutionOutcome {
	return ExecutionOutcome{Status: OutcomeFailed, Message: fmt.Sprintf(format, args...)}
}

// Errorf returns a classified error outcome; recoverable errors keep the
// session alive, non-recoverable ones terminate it.
func Errorf(recoverable bool, format string, args ...any) ExecutionOutcome {
	return ExecutionOutcome{Status: OutcomeError, Message: fmt.Sprintf(format, args...), Recoverable: recoverable}
}

// Terminal reports whether the outcome ends the session.
func (o ExecutionOutcome) Terminal() bool {
	return o.Status == OutcomeDone || (o.Status == OutcomeError && !o.Recoverable)
}

// UnlockStatus is the tagged result of the screen unlock precondition.
type UnlockStatus string

const (
	UnlockAlreadyUnlocked UnlockStatus = "ALREADY_UNLOCKED"
	UnlockSuccess         UnlockStatus = "SUCCESS"
	UnlockFailed          UnlockStatus = "FAILED"
	UnlockNeedUserAction  UnlockStatus = "NEED_USER_ACTION"
	UnlockNotSupported    UnlockStatus = "NOT_SUPPORTED"
)

// UnlockState carries the unlock controller's verdict and, for the
// non-success variants, a human-readable reason.
type UnlockState struct {
	Status UnlockStatus
	Reason string
}

// Unlocked reports whether automation may proceed.
func (u UnlockState) Unlocked() bool {
	return u.Status == UnlockAlreadyUnlocked || u.Status == UnlockSuccess
}

// ResultStatus is the terminal shape of one session invocation. Exactly one
// Result is emitted per session; no partial states are exposed.
type ResultStatus string

const (
	ResultSuccess        ResultStatus = "SUCCESS"
	ResultFailed         ResultStatus = "FAILED"
	ResultNeedUserAction ResultStatus = "NEED_USER_ACTION"
)

// Result is the caller-visible terminal outcome of a session.
type Result struct {
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
	Steps   int          `json:"steps"`
}

// Succeeded reports whether the session reached its goal.
func (r Result) Succeeded() bool { return r.Status == ResultSuccess }
