package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func HasClass(n *html.Node, cls string) bool {
	for _, c := range Classes(n) {
		if c == cls {
			return true
		}
	}
	return false
}

func AddClass(n *html.Node, cls string) {
	if HasClass(n, cls) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(strings.Join(append(Classes(n), cls), " ")))
}

func RemoveClass(n *html.Node, cls string) {
	var kept []string
	for _, c := range Classes(n) {
		if c != cls {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

type styleDecl struct {
	prop, value string
}

func parseStyle(s string) []styleDecl {
	var decls []styleDecl
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" {
			continue
		}
		decls = append(decls, styleDecl{prop: prop, value: strings.TrimSpace(value)})
	}
	return decls
}

// StyleProperty reads one inline style property, "" when unset.
func StyleProperty(n *html.Node, prop string) string {
	s, _ := Attr(n, "style")
	for _, d := range parseStyle(s) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyleProperty writes one inline style property; an empty value removes it.
func SetStyleProperty(n *html.Node, prop, value string) {
	s, _ := Attr(n, "style")
	decls := parseStyle(s)
	out := decls[:0]
	replaced := false
	for _, d := range decls {
		if d.prop == prop {
			if value == "" || replaced {
				continue
			}
			d.value = value
			replaced = true
		}
		out = append(out, d)
	}
	if !replaced && value != "" {
		out = append(out, styleDecl{prop: prop, value: value})
	}
	if len(out) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, 0, len(out))
	for _, d := range out {
		parts = append(parts, d.prop+": "+d.value)
	}
	SetAttr(n, "style", strings.Join(parts, "; "))
}
