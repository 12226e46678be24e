package schemas

import "time"

// Bounds is an element's bounding box in screen pixels. Right and Bottom are
// exclusive, matching the uiautomator dump format "[left,top][right,bottom]".
type Bounds struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent of the box.
func (b Bounds) Width() int { return b.Right - b.Left }

// Height returns the vertical extent of the box.
func (b Bounds) Height() int { return b.Bottom - b.Top }

// Center returns the geometric center of the box.
func (b Bounds) Center() (x, y int) {
	return b.Left + b.Width()/2, b.Top + b.Height()/2
}

// Element is one visible node of the captured UI hierarchy.
//
// Index is assigned by traversal order within a single Scene and is NOT
// stable across scenes; the decision service must treat it as scene-local.
type Element struct {
	Index       int    `json:"index"`
	Class       string `json:"class"`
	ResourceID  string `json:"resource_id,omitempty"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"content_desc,omitempty"`
	Bounds      Bounds `json:"bounds"`
	Clickable   bool   `json:"clickable"`
	Enabled     bool   `json:"enabled"`
	Visible     bool   `json:"visible"`
}

// Scene is an immutable snapshot of the target application's UI: the filtered
// element tree plus a compressed screenshot. It is produced once by the
// perception layer and consumed once by the decision call.
type Scene struct {
	Package    string    `json:"package"`
	Activity   string    `json:"activity,omitempty"`
	Elements   []Element `json:"elements"`
	Screenshot []byte    `json:"-"` // JPEG bytes; transported as base64 in DecisionRequest.
	CapturedAt time.Time `json:"captured_at"`
}

// FindByIndex returns the element with the given scene-local index, or nil.
func (s *Scene) FindByIndex(idx int) *Element {
	for i := range s.Elements {
		if s.Elements[i].Index == idx {
			return &s.Elements[i]
		}
	}
	return nil
}

// FindByText returns the first clickable, enabled element whose text or
// accessibility label equals the given string, or nil.
func (s *Scene) FindByText(text string) *Element {
	for i := range s.Elements {
		e := &s.Elements[i]
		if !e.Clickable || !e.Enabled {
			continue
		}
		if e.Text == text || e.ContentDesc == text {
			return e
		}
	}
	return nil
}
