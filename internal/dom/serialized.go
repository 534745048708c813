package dom

import (
	"sort"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SerializedNode is the JSON shape a browser-side walker emits for one node.
// Text nodes have Tag "#text" and carry Text; elements carry Ref, Attrs and
// their page-coordinate box.
type SerializedNode struct {
	Ref      int               `json:"ref,omitempty"`
	Tag      string            `json:"tag"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Top      float64           `json:"top,omitempty"`
	Height   float64           `json:"height,omitempty"`
	Children []SerializedNode  `json:"children,omitempty"`
}

// SerializedPage is the full capture: root element plus page state.
type SerializedPage struct {
	URL     string         `json:"url"`
	ScrollY float64        `json:"scrollY"`
	Root    SerializedNode `json:"root"`
}

// FromSerialized rebuilds a Snapshot from a browser capture.
func FromSerialized(p SerializedPage) *Snapshot {
	doc := &html.Node{Type: html.DocumentNode}
	refs := map[*html.Node]Ref{}
	boxes := map[*html.Node]Box{}
	doc.AppendChild(buildNode(p.Root, refs, boxes))
	return NewSnapshot(goquery.NewDocumentFromNode(doc), p.URL, refs, boxes, p.ScrollY)
}

func buildNode(s SerializedNode, refs map[*html.Node]Ref, boxes map[*html.Node]Box) *html.Node {
	if s.Tag == "#text" {
		return &html.Node{Type: html.TextNode, Data: s.Text}
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     s.Tag,
		DataAtom: atom.Lookup([]byte(s.Tag)),
	}
	keys := make([]string, 0, len(s.Attrs))
	for k := range s.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: s.Attrs[k]})
	}
	if s.Ref != 0 {
		refs[n] = Ref(s.Ref)
	}
	boxes[n] = Box{Top: s.Top, Height: s.Height}

	for _, c := range s.Children {
		n.AppendChild(buildNode(c, refs, boxes))
	}
	return n
}
