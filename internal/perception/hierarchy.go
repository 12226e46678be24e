package perception

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// boundsRegex matches the uiautomator bounds attribute: "[l,t][r,b]".
var boundsRegex = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

// ParseHierarchy converts a uiautomator XML dump into the filtered, indexed
// element list of a Scene. Traversal is depth-first in document order, so
// repeated parses of the same bytes yield identical indices. Nodes without
// positive area, and nodes the dump marks invisible, are excluded.
func ParseHierarchy(data []byte) (pkg string, elements []schemas.Element, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", nil, fmt.Errorf("invalid hierarchy XML: %w", err)
	}

	root := doc.SelectElement("hierarchy")
	if root == nil {
		return "", nil, fmt.Errorf("missing <hierarchy> root element")
	}

	elements = make([]schemas.Element, 0, 32)
	next := 0
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Tag == "node" {
			if e, ok := nodeToElement(el); ok {
				if pkg == "" {
					pkg = el.SelectAttrValue("package", "")
				}
				e.Index = next
				next++
				elements = append(elements, e)
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)

	return pkg, elements, nil
}

// nodeToElement converts one dump node, reporting ok=false for nodes that
// must not appear in a Scene (zero area or invisible).
func nodeToElement(el *etree.Element) (schemas.Element, bool) {
	bounds, ok := ParseBounds(el.SelectAttrValue("bounds", ""))
	if !ok || bounds.Width() <= 0 || bounds.Height() <= 0 {
		return schemas.Element{}, false
	}
	// The dump only contains on-screen nodes; the attribute exists on
	// builds that also report occluded ones.
	if el.SelectAttrValue("visible-to-user", "true") != "true" {
		return schemas.Element{}, false
	}

	return schemas.Element{
		Class:       el.SelectAttrValue("class", ""),
		ResourceID:  el.SelectAttrValue("resource-id", ""),
		Text:        el.SelectAttrValue("text", ""),
		ContentDesc: el.SelectAttrValue("content-desc", ""),
		Bounds:      bounds,
		Clickable:   el.SelectAttrValue("clickable", "false") == "true",
		Enabled:     el.SelectAttrValue("enabled", "false") == "true",
		Visible:     true,
	}, true
}

// ParseBounds parses the "[l,t][r,b]" bounds attribute format.
func ParseBounds(s string) (schemas.Bounds, bool) {
	m := boundsRegex.FindStringSubmatch(s)
	if m == nil {
		return schemas.Bounds{}, false
	}
	vals := make([]int, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return schemas.Bounds{}, false
		}
		vals[i] = v
	}
	return schemas.Bounds{Left: vals[0], Top: vals[1], Right: vals[2], Bottom: vals[3]}, true
}
