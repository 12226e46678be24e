package schemas

// ActionKind enumerates every instruction the decision service may return.
// The set is closed; an unrecognized value is a protocol violation, not a UI
// failure, and terminates the session.
type ActionKind string

const (
	ActionTap          ActionKind = "tap"
	ActionSwipe        ActionKind = "swipe"
	ActionTypeText     ActionKind = "type_text"
	ActionWait         ActionKind = "wait"
	ActionBack         ActionKind = "back"
	ActionLaunchApp    ActionKind = "launch_app"
	ActionDismissPopup ActionKind = "dismiss_popup"
	ActionFinish       ActionKind = "finish"
	ActionError        ActionKind = "error"
)

// KnownActionKinds lists the accepted wire values, in documentation order.
var KnownActionKinds = []ActionKind{
	ActionTap, ActionSwipe, ActionTypeText, ActionWait, ActionBack,
	ActionLaunchApp, ActionDismissPopup, ActionFinish, ActionError,
}

// Known reports whether k is part of the protocol's action vocabulary.
func (k ActionKind) Known() bool {
	for _, known := range KnownActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActionDirective is the decision service's instruction for one step.
// Which fields are required depends on Action; the actuator validates the
// combination and rejects incomplete directives as local failures.
type ActionDirective struct {
	Action ActionKind `json:"action"`

	// Tap target and the size hint of the element it belongs to. Coordinates
	// are pointers so a missing field is distinguishable from a legitimate 0.
	X             *int `json:"x,omitempty"`
	Y             *int `json:"y,omitempty"`
	ElementWidth  int  `json:"element_width,omitempty"`
	ElementHeight int  `json:"element_height,omitempty"`
	ElementIndex  int  `json:"element_index,omitempty"`

	// Swipe path. DurationMS is also the wait length for ActionWait.
	StartX     *int `json:"start_x,omitempty"`
	StartY     *int `json:"start_y,omitempty"`
	EndX       *int `json:"end_x,omitempty"`
	EndY       *int `json:"end_y,omitempty"`
	DurationMS int  `json:"duration,omitempty"`

	Text        string `json:"text,omitempty"`
	PackageName string `json:"package_name,omitempty"`

	// WaitAfterMS overrides the humanized post-action delay when positive.
	WaitAfterMS int `json:"wait_after,omitempty"`

	Confidence  float64 `json:"confidence,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Message     string  `json:"message,omitempty"`
	Recoverable bool    `json:"recoverable,omitempty"`
}

// DecisionContext carries the accumulated session state the decision service
// needs alongside the scene: what the task is and what has been tried.
type DecisionContext struct {
	Task            string   `json:"task"`
	SessionID       string   `json:"session_id"`
	Step            int      `json:"step"`
	PayloadRef      string   `json:"payload_ref,omitempty"`
	Caption         string   `json:"caption,omitempty"`
	PreviousActions []string `json:"previous_actions"`
}

// UITree is the element-tree half of a DecisionRequest.
type UITree struct {
	Package  string    `json:"package"`
	Activity string    `json:"activity,omitempty"`
	Elements []Element `json:"elements"`
}

// DecisionRequest is the complete wire payload submitted to the decision
// service for one step: screenshot, element tree, and session context.
type DecisionRequest struct {
	Screenshot string          `json:"screenshot"` // base64 JPEG
	UITree     UITree          `json:"ui_tree"`
	Context    DecisionContext `json:"context"`
}

// NewDecisionRequest assembles the wire payload from a captured scene and the
// session's accumulated context. Screenshot encoding is left to the caller's
// codec so the scene bytes are encoded exactly once.
func NewDecisionRequest(scene *Scene, dctx DecisionContext, screenshotB64 string) DecisionRequest {
	return DecisionRequest{
		Screenshot: screenshotB64,
		UITree: UITree{
			Package:  scene.Package,
			Activity: scene.Activity,
			Elements: scene.Elements,
		},
		Context: dctx,
	}
}
