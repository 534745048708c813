package infra

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	"github.com/fpt/cobrowse/internal/dom"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// BrowserOptions selects how a Chrome instance is reached.
type BrowserOptions struct {
	// ControlURL attaches to a running browser when set
	ControlURL string
	Bin        string
	Headless   bool
	// NavigationTimeout bounds page loads; zero means no limit
	NavigationTimeout time.Duration
}

// RodBrowser owns one Chrome connection. Each session opens its own page.
type RodBrowser struct {
	browser *rod.Browser
	opts    BrowserOptions
	logger  *pkgLogger.Logger
}

// LaunchBrowser connects to opts.ControlURL or launches a local Chrome.
func LaunchBrowser(ctx context.Context, opts BrowserOptions) (*RodBrowser, error) {
	logger := pkgLogger.NewComponentLogger("rod")

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(err, "launch chrome")
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, errors.Wrap(err, "connect to chrome")
	}
	logger.InfoWithIntention(pkgLogger.IntentionPage, "Browser connected", "control_url", controlURL)
	return &RodBrowser{browser: browser, opts: opts, logger: logger}, nil
}

// OpenPage opens rawURL in a fresh incognito context and waits for it to load.
func (b *RodBrowser) OpenPage(ctx context.Context, rawURL string) (*RodPage, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, errors.Wrap(err, "incognito context")
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return nil, errors.Wrap(err, "create page")
	}
	p := &RodPage{page: page, timeout: b.opts.NavigationTimeout}
	if err := p.waitLoad(ctx); err != nil {
		_ = page.Close()
		return nil, err
	}
	return p, nil
}

// Close shuts the browser down.
func (b *RodBrowser) Close() error {
	return b.browser.Close()
}

// RodPage drives a live Chrome tab. Element refs live in a page-side registry
// (window.__cobrowse) so they survive between snapshots until the document
// is replaced.
type RodPage struct {
	page    *rod.Page
	timeout time.Duration
}

const registryJS = `(window.__cobrowse || (window.__cobrowse = { ids: new WeakMap(), els: new Map(), next: 1 }))`

const snapshotJS = `() => {
	const st = ` + registryJS + `;
	const walk = (n) => {
		if (n.nodeType === Node.TEXT_NODE) return { tag: '#text', text: n.nodeValue };
		if (n.nodeType !== Node.ELEMENT_NODE) return null;
		let id = st.ids.get(n);
		if (!id) { id = st.next++; st.ids.set(n, id); st.els.set(id, n); }
		const attrs = {};
		for (const a of n.attributes) attrs[a.name] = a.value;
		const r = n.getBoundingClientRect();
		const children = [];
		for (const c of n.childNodes) { const s = walk(c); if (s) children.push(s); }
		return { ref: id, tag: n.tagName.toLowerCase(), attrs, top: r.top + window.scrollY, height: r.height, children };
	};
	return JSON.stringify({ url: location.href, scrollY: window.scrollY, root: walk(document.documentElement) });
}`

// elementJS wraps body in a function of (ref, ...args) with el bound.
func elementJS(params, body string) string {
	if params != "" {
		params = ", " + params
	}
	return `(ref` + params + `) => {
	const el = ` + registryJS + `.els.get(ref);
	if (!el || !el.isConnected) throw new Error('element ' + ref + ' is no longer attached');
	` + body + `
}`
}

var (
	scrollJS    = elementJS("", `el.scrollIntoView({ behavior: 'smooth', block: 'start' });`)
	clickJS     = elementJS("", `el.click();`)
	setValueJS  = elementJS("value", `el.value = value; el.dispatchEvent(new Event('input', { bubbles: true }));`)
	stylesJS    = elementJS("props", `const out = {}; for (const p of props) out[p] = el.style.getPropertyValue(p); return JSON.stringify(out);`)
	setStylesJS = elementJS("styles", `for (const [p, v] of Object.entries(styles)) { if (v) el.style.setProperty(p, v); else el.style.removeProperty(p); }`)
	setClassJS  = elementJS("cls, on", `el.classList.toggle(cls, on);`)
)

func (p *RodPage) eval(ctx context.Context, js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(js, args...))
	if err != nil {
		return nil, errors.Wrap(err, "evaluate")
	}
	return res, nil
}

func (p *RodPage) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	res, err := p.eval(ctx, snapshotJS)
	if err != nil {
		return nil, err
	}
	var captured dom.SerializedPage
	if err := json.Unmarshal([]byte(res.Value.Str()), &captured); err != nil {
		return nil, errors.Wrap(err, "decode page capture")
	}
	return dom.FromSerialized(captured), nil
}

func (p *RodPage) ScrollIntoView(ctx context.Context, ref dom.Ref) error {
	_, err := p.eval(ctx, scrollJS, int(ref))
	return err
}

func (p *RodPage) Click(ctx context.Context, ref dom.Ref) error {
	_, err := p.eval(ctx, clickJS, int(ref))
	return err
}

func (p *RodPage) SetValue(ctx context.Context, ref dom.Ref, value string) error {
	_, err := p.eval(ctx, setValueJS, int(ref), value)
	return err
}

func (p *RodPage) Styles(ctx context.Context, ref dom.Ref, props []string) (map[string]string, error) {
	res, err := p.eval(ctx, stylesJS, int(ref), props)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(props))
	if err := json.Unmarshal([]byte(res.Value.Str()), &out); err != nil {
		return nil, errors.Wrap(err, "decode styles")
	}
	return out, nil
}

func (p *RodPage) SetStyles(ctx context.Context, ref dom.Ref, styles map[string]string) error {
	_, err := p.eval(ctx, setStylesJS, int(ref), styles)
	return err
}

func (p *RodPage) SetClass(ctx context.Context, ref dom.Ref, class string, on bool) error {
	_, err := p.eval(ctx, setClassJS, int(ref), class, on)
	return err
}

// Navigate changes the location. Anchors only move the hash; paths load a new
// document and wait for it.
func (p *RodPage) Navigate(ctx context.Context, target string) error {
	if strings.HasPrefix(target, "#") {
		_, err := p.eval(ctx, `(hash) => { location.hash = hash; }`, target)
		return err
	}

	info, err := p.page.Info()
	if err != nil {
		return errors.Wrap(err, "page info")
	}
	base, err := url.Parse(info.URL)
	if err != nil {
		return errors.Wrap(err, "parse page url")
	}
	ref, err := url.Parse(target)
	if err != nil {
		return errors.Wrap(err, "parse navigation target")
	}
	if err := p.page.Context(ctx).Navigate(base.ResolveReference(ref).String()); err != nil {
		return errors.Wrap(err, "navigate")
	}
	return p.waitLoad(ctx)
}

// URL returns the current location.
func (p *RodPage) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", errors.Wrap(err, "page info")
	}
	return info.URL, nil
}

// Close closes the tab.
func (p *RodPage) Close() error {
	return p.page.Close()
}

func (p *RodPage) waitLoad(ctx context.Context) error {
	page := p.page.Context(ctx)
	if p.timeout > 0 {
		page = page.Timeout(p.timeout)
	}
	if err := page.WaitLoad(); err != nil {
		return errors.Wrap(err, "wait for page load")
	}
	return nil
}
