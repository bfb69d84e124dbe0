package parser

import (
	"strings"

	"github.com/dtnitsch/quote-origin/models"
	"golang.org/x/net/html"
)

// skippedElements never contribute visible text.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// WalkText calls fn for every visible text node under root in document
// order. Nodes already in seen are skipped and every visited node is added,
// so overlapping roots are only walked once. Quote index labels are skipped.
func WalkText(root *html.Node, seen map[*html.Node]struct{}, fn func(*html.Node)) {
	if root == nil {
		return
	}
	if _, ok := seen[root]; ok {
		return
	}
	seen[root] = struct{}{}

	switch root.Type {
	case html.TextNode:
		fn(root)
		return
	case html.ElementNode:
		if _, skip := skippedElements[root.Data]; skip {
			return
		}
		if IsLabel(root) {
			return
		}
	}

	for c := root.FirstChild; c != nil; c = c.NextSibling {
		WalkText(c, seen, fn)
	}
}

// TextLeaves collects the visible text nodes of roots, in root order, before
// any of them is modified.
func TextLeaves(roots ...*html.Node) []*html.Node {
	var leaves []*html.Node
	seen := make(map[*html.Node]struct{})
	for _, root := range roots {
		WalkText(root, seen, func(n *html.Node) {
			leaves = append(leaves, n)
		})
	}
	return leaves
}

// IsMarker reports whether n is an inserted quote marker.
func IsMarker(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == models.MarkerTag &&
		hasClass(n, models.MarkerClass)
}

// IsLabel reports whether n is an inserted quote index label.
func IsLabel(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == models.LabelTag &&
		hasClass(n, models.LabelClass)
}

// InsideMarker reports whether any ancestor of n is a quote marker.
func InsideMarker(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsMarker(p) {
			return true
		}
	}
	return false
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
