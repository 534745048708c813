package infra

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/cobrowse/internal/dom"
)

const pageHTML = `<html><body>
<nav><a id="to-projects" href="/projects">Projects</a><a id="to-contact" href="#contact">Contact</a></nav>
<section id="about" style="height: 500px">About</section>
<section id="contact" style="height: 300px">
  <form><input name="email"><textarea name="message">old</textarea><button>Send</button></form>
</section>
</body></html>`

func newTestPage(t *testing.T, loader PageLoader) *StaticPage {
	t.Helper()
	p, err := NewStaticPage(strings.NewReader(pageHTML), "https://portfolio.test/", loader)
	require.NoError(t, err)
	return p
}

func refOf(t *testing.T, p *StaticPage, selector string) dom.Ref {
	t.Helper()
	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	n, err := snap.Query(selector)
	require.NoError(t, err)
	require.NotNil(t, n, selector)
	return snap.Ref(n)
}

func TestStaticPageRefsAreStable(t *testing.T) {
	p := newTestPage(t, nil)
	ref := refOf(t, p, "#contact")

	require.NoError(t, p.SetValue(context.Background(), refOf(t, p, "textarea"), "new text"))
	assert.Equal(t, ref, refOf(t, p, "#contact"))
}

func TestStaticPageScrollIntoView(t *testing.T) {
	p := newTestPage(t, nil)
	ctx := context.Background()

	require.NoError(t, p.ScrollIntoView(ctx, refOf(t, p, "#contact")))
	assert.Greater(t, p.ScrollY(), float64(500))

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ScrollY(), snap.ScrollY())

	err = p.ScrollIntoView(ctx, dom.Ref(9999))
	assert.Error(t, err)
}

func TestStaticPageSetValue(t *testing.T) {
	p := newTestPage(t, nil)
	ctx := context.Background()

	require.NoError(t, p.SetValue(ctx, refOf(t, p, `[name="email"]`), "ada@example.com"))
	require.NoError(t, p.SetValue(ctx, refOf(t, p, "textarea"), "hi"))

	markup, err := p.HTML()
	require.NoError(t, err)
	assert.Contains(t, markup, `value="ada@example.com"`)
	assert.Contains(t, markup, "<textarea name=\"message\">hi</textarea>")

	events := p.Events()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, PageEventInput, ev.Kind)
		assert.True(t, ev.Bubbles)
	}
}

func TestStaticPageStyles(t *testing.T) {
	p := newTestPage(t, nil)
	ctx := context.Background()
	ref := refOf(t, p, "#about")

	require.NoError(t, p.SetStyles(ctx, ref, map[string]string{"border": "1px solid red"}))
	styles, err := p.Styles(ctx, ref, []string{"border", "height", "outline"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"border": "1px solid red", "height": "500px", "outline": ""}, styles)

	require.NoError(t, p.SetStyles(ctx, ref, map[string]string{"border": ""}))
	styles, err = p.Styles(ctx, ref, []string{"border"})
	require.NoError(t, err)
	assert.Equal(t, "", styles["border"])

	require.NoError(t, p.SetClass(ctx, ref, "glow", true))
	snap, _ := p.Snapshot(ctx)
	assert.True(t, dom.HasClass(snap.ElementByID("about"), "glow"))
	require.NoError(t, p.SetClass(ctx, ref, "glow", false))
	snap, _ = p.Snapshot(ctx)
	assert.False(t, dom.HasClass(snap.ElementByID("about"), "glow"))
}

func TestStaticPageClickSubmitsForm(t *testing.T) {
	p := newTestPage(t, nil)
	require.NoError(t, p.Click(context.Background(), refOf(t, p, "button")))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, PageEventClick, events[0].Kind)
	assert.Equal(t, PageEventSubmit, events[1].Kind)
}

func TestStaticPageClickFollowsAnchor(t *testing.T) {
	p := newTestPage(t, nil)
	require.NoError(t, p.Click(context.Background(), refOf(t, p, "#to-contact")))

	assert.Equal(t, "https://portfolio.test/#contact", p.URL())
	assert.Greater(t, p.ScrollY(), float64(0))
}

func TestStaticPageNavigateLoadsPath(t *testing.T) {
	var loaded []string
	loader := func(_ context.Context, path string) (io.Reader, error) {
		loaded = append(loaded, path)
		return strings.NewReader(`<html><body><h1 id="projects">Projects</h1></body></html>`), nil
	}
	p := newTestPage(t, loader)

	require.NoError(t, p.Click(context.Background(), refOf(t, p, "#to-projects")))
	assert.Equal(t, []string{"/projects"}, loaded)
	assert.Equal(t, "https://portfolio.test/projects", p.URL())
	assert.Zero(t, p.ScrollY())

	snap, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.ElementByID("projects"))
	assert.Nil(t, snap.ElementByID("about"))
}

func TestStaticPageNavigateRetiresOldRefs(t *testing.T) {
	loader := func(_ context.Context, _ string) (io.Reader, error) {
		return strings.NewReader(pageHTML), nil
	}
	p := newTestPage(t, loader)
	ctx := context.Background()
	old := refOf(t, p, "#about")

	require.NoError(t, p.Navigate(ctx, "/again"))

	err := p.SetStyles(ctx, old, map[string]string{"border": "3px solid #3b82f6"})
	assert.Error(t, err, "a ref from the previous document must not resolve")
	assert.NotEqual(t, old, refOf(t, p, "#about"))

	markup, err := p.HTML()
	require.NoError(t, err)
	assert.NotContains(t, markup, "3px solid")
}

func TestStaticPageSnapshotIsDetached(t *testing.T) {
	p := newTestPage(t, nil)
	ctx := context.Background()
	before, err := p.Snapshot(ctx)
	require.NoError(t, err)
	ref := before.Ref(before.ElementByID("about"))

	require.NoError(t, p.SetStyles(ctx, ref, map[string]string{"border": "1px solid red"}))
	assert.Equal(t, "", dom.StyleProperty(before.ElementByID("about"), "border"))

	after, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1px solid red", dom.StyleProperty(after.ElementByID("about"), "border"))
	assert.Equal(t, ref, after.Ref(after.ElementByID("about")))
}

func TestStaticPageConcurrentMutationAndSnapshot(t *testing.T) {
	p := newTestPage(t, nil)
	ctx := context.Background()
	ref := refOf(t, p, "#about")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			border := ""
			if i%2 == 0 {
				border = "3px solid #3b82f6"
			}
			_ = p.SetClass(ctx, ref, "animate-pulse-glow", border != "")
			_ = p.SetStyles(ctx, ref, map[string]string{"border": border})
		}
	}()
	for i := 0; i < 200; i++ {
		snap, err := p.Snapshot(ctx)
		require.NoError(t, err)
		about := snap.ElementByID("about")
		_ = dom.VisibleText(about)
		_ = dom.StyleProperty(about, "border")
	}
	<-done
}

func TestStaticPageNavigateLoaderError(t *testing.T) {
	p := newTestPage(t, func(context.Context, string) (io.Reader, error) {
		return nil, errors.New("not found")
	})
	err := p.Navigate(context.Background(), "/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
