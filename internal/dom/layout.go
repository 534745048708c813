package dom

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Layout constants for EstimateLayout. They approximate a single-column page
// about 1000px wide at a 16px base font.
const (
	charsPerLine     = 100
	lineHeight       = 24.0
	headingLine      = 36.0
	sectionPadding   = 64.0
	controlHeight    = 40.0
	textareaHeight   = 120.0
	imageHeight      = 200.0
	paragraphSpacing = 16.0
)

var hiddenTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"noscript": true, "meta": true, "link": true, "title": true,
}

// EstimateLayout assigns boxes to every element under root by stacking
// children vertically. It is used for pages that were parsed rather than
// rendered by a browser. An inline style "height: Npx" overrides the estimate.
func EstimateLayout(root *html.Node) map[*html.Node]Box {
	boxes := make(map[*html.Node]Box)
	layoutNode(root, 0, boxes)
	return boxes
}

// layoutNode places n at top and returns its height.
func layoutNode(n *html.Node, top float64, boxes map[*html.Node]Box) float64 {
	switch n.Type {
	case html.TextNode:
		return textHeight(n.Data, lineHeight)
	case html.ElementNode, html.DocumentNode:
	default:
		return 0
	}

	tag := n.Data
	if n.Type == html.ElementNode && (hiddenTags[tag] || isHidden(n)) {
		boxes[n] = Box{Top: top}
		return 0
	}

	var height float64
	switch tag {
	case "input", "select", "button":
		height = controlHeight
	case "textarea":
		height = textareaHeight
	case "img", "svg", "canvas", "video":
		height = imageHeight
	case "h1", "h2", "h3", "h4", "h5", "h6":
		height = textHeight(VisibleText(n), headingLine) + paragraphSpacing
	default:
		pad := 0.0
		if tag == "section" {
			pad = sectionPadding
		}
		cursor := top + pad
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			cursor += layoutNode(c, cursor, boxes)
		}
		height = cursor - top + pad
		if tag == "p" || tag == "li" {
			height += paragraphSpacing
		}
	}

	if h, ok := explicitHeight(n); ok {
		height = h
	}
	if n.Type == html.ElementNode {
		boxes[n] = Box{Top: top, Height: height}
		if isLeafBox(tag) {
			markDescendants(n, top, boxes)
		}
	}
	return height
}

func isLeafBox(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6", "button", "select", "textarea":
		return true
	}
	return false
}

// markDescendants gives inline children of leaf boxes their parent's top.
func markDescendants(n *html.Node, top float64, boxes map[*html.Node]Box) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			boxes[c] = Box{Top: top, Height: textHeight(VisibleText(c), lineHeight)}
			markDescendants(c, top, boxes)
		}
	}
}

func textHeight(text string, line float64) float64 {
	text = strings.TrimSpace(CollapseWhitespace(text))
	if text == "" {
		return 0
	}
	lines := math.Ceil(float64(len([]rune(text))) / charsPerLine)
	return lines * line
}

func isHidden(n *html.Node) bool {
	if _, ok := Attr(n, "hidden"); ok {
		return true
	}
	return strings.ReplaceAll(StyleProperty(n, "display"), " ", "") == "none"
}

func explicitHeight(n *html.Node) (float64, bool) {
	if n.Type != html.ElementNode {
		return 0, false
	}
	v := StyleProperty(n, "height")
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0, false
	}
	return h, true
}
