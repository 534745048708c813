package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Attr returns an attribute value and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Classes splits the class attribute into its non-empty tokens.
func Classes(n *html.Node) []string {
	cls, _ := Attr(n, "class")
	return strings.Fields(cls)
}

// TextContent concatenates every descendant text node, like Node.textContent.
func TextContent(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n, false)
	return b.String()
}

// VisibleText is the element's text with script and style subtrees removed,
// whitespace runs collapsed and the result trimmed.
func VisibleText(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n, true)
	return strings.TrimSpace(CollapseWhitespace(b.String()))
}

// TrimmedText is the element's text with script and style subtrees removed
// and only the ends trimmed, so lengths match what the browser reports.
func TrimmedText(n *html.Node) string {
	var b strings.Builder
	collectText(&b, n, true)
	return strings.TrimSpace(b.String())
}

func collectText(b *strings.Builder, n *html.Node, skipScripts bool) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipScripts && (n.Data == "script" || n.Data == "style") {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, skipScripts)
	}
}

// CollapseWhitespace replaces each run of spaces, tabs and newlines with one space.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !inSpace {
				b.WriteRune(' ')
				inSpace = true
			}
			continue
		}
		b.WriteRune(r)
		inSpace = false
	}
	return b.String()
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// UniqueSelector synthesises a selector that resolves to n: "#id" when the
// element has one, else a " > " path of tag[.classes]:nth-child(i) segments
// from n upward (classes that need escaping are omitted), ending at body (exclusive) or at an ancestor with an id
// (rendered as tag#id).
func UniqueSelector(n *html.Node) string {
	if id, _ := Attr(n, "id"); id != "" {
		return "#" + id
	}

	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode && cur.Data != "body"; cur = cur.Parent {
		if id, _ := Attr(cur, "id"); id != "" {
			parts = append([]string{Tag(cur) + "#" + id}, parts...)
			break
		}
		segment := Tag(cur)
		for _, cls := range Classes(cur) {
			if isPlainClass(cls) {
				segment += "." + cls
			}
		}
		if cur.Parent != nil && cur.Parent.Type == html.ElementNode {
			segment += fmt.Sprintf(":nth-child(%d)", NthChild(cur))
		}
		parts = append([]string{segment}, parts...)
	}
	return strings.Join(parts, " > ")
}

// isPlainClass reports whether cls can appear in a selector unescaped.
// Utility classes such as "md:flex" or "w-1/2" are left out of paths.
func isPlainClass(cls string) bool {
	for _, r := range cls {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return cls != "" && (cls[0] < '0' || cls[0] > '9')
}

// NthChild returns the 1-based position of n among its parent's element children.
func NthChild(n *html.Node) int {
	i := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			i++
		}
	}
	return i
}
