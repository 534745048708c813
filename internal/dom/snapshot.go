// Package dom holds a point-in-time view of a rendered page: the parsed
// element tree, a layout box per element, and stable element refs that a
// Page implementation can resolve back to its live element.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// ErrInvalidSelector wraps CSS selector syntax errors.
var ErrInvalidSelector = errors.New("invalid selector")

// Ref is a stable handle for an element. It survives re-snapshots of the
// same page for as long as the element is attached. Zero means "no element".
type Ref int

// Box is an element's vertical placement in page coordinates.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Snapshot is an immutable view of a page. Mutations go through the Page
// that produced it, followed by a fresh snapshot.
type Snapshot struct {
	doc     *goquery.Document
	url     string
	refs    map[*html.Node]Ref
	nodes   map[Ref]*html.Node
	boxes   map[*html.Node]Box
	scrollY float64
}

// NewSnapshot assembles a snapshot. refs and boxes are keyed by nodes of doc;
// elements missing from refs have Ref 0 and elements missing from boxes have
// a zero Box.
func NewSnapshot(doc *goquery.Document, url string, refs map[*html.Node]Ref, boxes map[*html.Node]Box, scrollY float64) *Snapshot {
	nodes := make(map[Ref]*html.Node, len(refs))
	for n, r := range refs {
		nodes[r] = n
	}
	if boxes == nil {
		boxes = map[*html.Node]Box{}
	}
	return &Snapshot{doc: doc, url: url, refs: refs, nodes: nodes, boxes: boxes, scrollY: scrollY}
}

func (s *Snapshot) Document() *goquery.Document {
	return s.doc
}

func (s *Snapshot) URL() string {
	return s.url
}

// ScrollY is the page's vertical scroll offset at capture time.
func (s *Snapshot) ScrollY() float64 {
	return s.scrollY
}

func (s *Snapshot) Ref(n *html.Node) Ref {
	return s.refs[n]
}

func (s *Snapshot) Node(r Ref) *html.Node {
	return s.nodes[r]
}

func (s *Snapshot) Box(n *html.Node) Box {
	return s.boxes[n]
}

// Compile parses a CSS selector, reporting syntax errors as ErrInvalidSelector.
func Compile(selector string) (cascadia.Sel, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelector, "%s: %v", selector, err)
	}
	return sel, nil
}

// QueryAll returns every element matching selector in document order.
func (s *Snapshot) QueryAll(selector string) ([]*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.QueryAll(s.root(), sel), nil
}

// Query returns the first element matching selector, or nil.
func (s *Snapshot) Query(selector string) (*html.Node, error) {
	sel, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return cascadia.Query(s.root(), sel), nil
}

// First returns the first descendant of n matching sel, or nil.
func First(n *html.Node, sel cascadia.Sel) *html.Node {
	return cascadia.Query(n, sel)
}

// ElementByID mirrors document.getElementById.
func (s *Snapshot) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	walkElements(s.root(), func(n *html.Node) bool {
		if v, _ := Attr(n, "id"); v == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Elements returns every element in document order, html first.
func (s *Snapshot) Elements() []*html.Node {
	var out []*html.Node
	walkElements(s.root(), func(n *html.Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

func (s *Snapshot) root() *html.Node {
	if len(s.doc.Nodes) == 0 {
		return &html.Node{Type: html.DocumentNode}
	}
	return s.doc.Nodes[0]
}

// walkElements visits elements depth first in document order until fn returns false.
func walkElements(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkElements(c, fn) {
			return false
		}
	}
	return true
}

// IndexElements gives every element under root a ref in document order,
// keeping any ref already present in existing. New refs are numbered above
// every ref in existing, including ones for nodes no longer under root.
func IndexElements(root *html.Node, existing map[*html.Node]Ref) map[*html.Node]Ref {
	refs := make(map[*html.Node]Ref)
	next := Ref(1)
	for _, r := range existing {
		if r >= next {
			next = r + 1
		}
	}
	walkElements(root, func(n *html.Node) bool {
		if r, ok := existing[n]; ok {
			refs[n] = r
			return true
		}
		refs[n] = next
		next++
		return true
	})
	return refs
}

// Clone deep-copies the tree under root. refs is re-keyed onto the copied
// nodes, so a ref read from the copy still names the original element.
func Clone(root *html.Node, refs map[*html.Node]Ref) (*html.Node, map[*html.Node]Ref) {
	out := make(map[*html.Node]Ref, len(refs))
	var clone func(n *html.Node) *html.Node
	clone = func(n *html.Node) *html.Node {
		c := &html.Node{
			Type:      n.Type,
			DataAtom:  n.DataAtom,
			Data:      n.Data,
			Namespace: n.Namespace,
			Attr:      append([]html.Attribute(nil), n.Attr...),
		}
		if r, ok := refs[n]; ok {
			out[c] = r
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			c.AppendChild(clone(ch))
		}
		return c
	}
	return clone(root), out
}

// Tag returns the lowercase tag name of an element.
func Tag(n *html.Node) string {
	return strings.ToLower(n.Data)
}
