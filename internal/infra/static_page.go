package infra

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/fpt/cobrowse/internal/dom"
)

// PageEventKind names an interaction recorded by StaticPage.
type PageEventKind string

const (
	PageEventScroll   PageEventKind = "scroll"
	PageEventClick    PageEventKind = "click"
	PageEventInput    PageEventKind = "input"
	PageEventSubmit   PageEventKind = "submit"
	PageEventNavigate PageEventKind = "navigate"
)

// PageEvent is one recorded interaction.
type PageEvent struct {
	Kind     PageEventKind
	Selector string
	Value    string
	// Bubbles is set for synthetic input events
	Bubbles bool
}

// PageLoader returns markup for a same-origin path.
type PageLoader func(ctx context.Context, path string) (io.Reader, error)

// StaticPage is an in-memory page backed by parsed HTML. Layout is estimated
// rather than rendered, and interactions are recorded instead of dispatched
// to scripts. Snapshots are detached copies: reverts running on timers never
// touch a tree a reader holds.
type StaticPage struct {
	mu      sync.Mutex
	doc     *goquery.Document
	url     *url.URL
	refs    map[*html.Node]dom.Ref
	scrollY float64
	events  []PageEvent
	loader  PageLoader
}

// NewStaticPage parses markup served at rawURL. loader may be nil, in which
// case path navigation only updates the URL.
func NewStaticPage(r io.Reader, rawURL string, loader PageLoader) (*StaticPage, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse page url")
	}
	p := &StaticPage{url: u, loader: loader}
	if err := p.load(r); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticPageFromHTML is NewStaticPage for an in-memory string at "/".
func NewStaticPageFromHTML(markup string) (*StaticPage, error) {
	return NewStaticPage(strings.NewReader(markup), "/", nil)
}

func (p *StaticPage) load(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return errors.Wrap(err, "parse page html")
	}
	p.doc = doc
	// numbering continues past the previous document, so refs held from
	// before a navigation never resolve to a new element
	p.refs = dom.IndexElements(doc.Nodes[0], p.refs)
	p.scrollY = 0
	return nil
}

func (p *StaticPage) Snapshot(_ context.Context) (*dom.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	root := p.doc.Nodes[0]
	p.refs = dom.IndexElements(root, p.refs)
	copied, refs := dom.Clone(root, p.refs)
	return dom.NewSnapshot(goquery.NewDocumentFromNode(copied), p.url.String(), refs, dom.EstimateLayout(copied), p.scrollY), nil
}

// snapshotLocked views the live tree; callers hold p.mu for as long as they
// use it.
func (p *StaticPage) snapshotLocked() *dom.Snapshot {
	root := p.doc.Nodes[0]
	p.refs = dom.IndexElements(root, p.refs)
	return dom.NewSnapshot(p.doc, p.url.String(), p.refs, dom.EstimateLayout(root), p.scrollY)
}

// node resolves a ref; callers hold p.mu.
func (p *StaticPage) node(ref dom.Ref) (*html.Node, error) {
	for n, r := range p.refs {
		if r == ref {
			return n, nil
		}
	}
	return nil, fmt.Errorf("element %d is no longer attached", ref)
}

func (p *StaticPage) ScrollIntoView(_ context.Context, ref dom.Ref) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref)
	if err != nil {
		return err
	}
	snap := p.snapshotLocked()
	p.scrollY = snap.Box(n).Top
	p.record(PageEvent{Kind: PageEventScroll, Selector: dom.UniqueSelector(n)})
	return nil
}

// Click records the click and emulates default actions: relative links
// navigate and submit buttons submit their form.
func (p *StaticPage) Click(ctx context.Context, ref dom.Ref) error {
	p.mu.Lock()
	n, err := p.node(ref)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.record(PageEvent{Kind: PageEventClick, Selector: dom.UniqueSelector(n)})

	href := ""
	if a := closest(n, "a"); a != nil {
		href, _ = dom.Attr(a, "href")
	}
	if form := closest(n, "form"); form != nil && isSubmit(n) {
		p.record(PageEvent{Kind: PageEventSubmit, Selector: dom.UniqueSelector(form)})
	}
	p.mu.Unlock()

	if strings.HasPrefix(href, "#") || (strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")) {
		return p.Navigate(ctx, href)
	}
	return nil
}

func (p *StaticPage) SetValue(_ context.Context, ref dom.Ref, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref)
	if err != nil {
		return err
	}

	switch n.Data {
	case "textarea":
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		dom.SetAttr(n, "value", value)
	}
	p.record(PageEvent{Kind: PageEventInput, Selector: dom.UniqueSelector(n), Value: value, Bubbles: true})
	return nil
}

func (p *StaticPage) Styles(_ context.Context, ref dom.Ref, props []string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(props))
	for _, prop := range props {
		out[prop] = dom.StyleProperty(n, prop)
	}
	return out, nil
}

func (p *StaticPage) SetStyles(_ context.Context, ref dom.Ref, styles map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref)
	if err != nil {
		return err
	}
	for prop, v := range styles {
		dom.SetStyleProperty(n, prop, v)
	}
	return nil
}

func (p *StaticPage) SetClass(_ context.Context, ref dom.Ref, class string, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.node(ref)
	if err != nil {
		return err
	}
	if on {
		dom.AddClass(n, class)
	} else {
		dom.RemoveClass(n, class)
	}
	return nil
}

// Navigate resolves target against the current URL. Anchors scroll to the
// matching id; paths reload through the loader when one is configured.
func (p *StaticPage) Navigate(ctx context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref, err := url.Parse(target)
	if err != nil {
		return errors.Wrap(err, "parse navigation target")
	}
	next := p.url.ResolveReference(ref)
	samePath := next.Path == p.url.Path
	p.url = next
	p.record(PageEvent{Kind: PageEventNavigate, Value: next.String()})

	if !samePath && p.loader != nil {
		r, err := p.loader(ctx, next.Path)
		if err != nil {
			return errors.Wrapf(err, "load %s", next.Path)
		}
		if err := p.load(r); err != nil {
			return err
		}
	}
	if next.Fragment != "" {
		snap := p.snapshotLocked()
		if el := snap.ElementByID(next.Fragment); el != nil {
			p.scrollY = snap.Box(el).Top
		}
	}
	return nil
}

// URL returns the current location.
func (p *StaticPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url.String()
}

// ScrollY returns the current vertical scroll offset.
func (p *StaticPage) ScrollY() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollY
}

// Events returns a copy of the recorded interactions.
func (p *StaticPage) Events() []PageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PageEvent(nil), p.events...)
}

// HTML renders the current document.
func (p *StaticPage) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return goquery.OuterHtml(p.doc.Selection)
}

func (p *StaticPage) record(ev PageEvent) {
	p.events = append(p.events, ev)
}

func closest(n *html.Node, tag string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && cur.Data == tag {
			return cur
		}
	}
	return nil
}

func isSubmit(n *html.Node) bool {
	typ, _ := dom.Attr(n, "type")
	switch n.Data {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit"
	}
	return false
}
