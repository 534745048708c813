package tool

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fpt/cobrowse/internal/dom"
	"github.com/fpt/cobrowse/internal/infra"
)

var (
	aboutText       = strings.Repeat("I build agentic systems and developer tooling. ", 35)
	experienceText  = strings.Repeat("Led the platform team shipping conversational agents to production. ", 3)
	testimonialText = "Working with them was a pleasure; every release landed on time and well tested."
	skillsText      = "A mix of languages, frameworks and infrastructure I use every day at work."
	contactText     = "Reach out through the form below and I will get back within a couple of days."
)

// portfolioHTML mirrors the site's DOM attribute contract. Explicit heights
// pin the estimated layout so positions are predictable.
var portfolioHTML = `<!doctype html><html><head><title>Portfolio</title></head><body>
<section id="home" style="height: 600px"><h1>Welcome to my portfolio</h1><p>` + strings.Repeat("Hero copy. ", 10) + `</p></section>
<section id="about" class="py-16 md:py-24" style="height: 400px"><h2>About Me</h2><p>` + aboutText + `</p></section>
<section id="experience" style="height: 800px"><h2>Experience</h2>
  <div data-section="experience" data-index="0"><h3>Staff Engineer</h3><p>` + experienceText + `</p></div>
  <div data-section="experience" data-index="1"><p>short</p></div>
</section>
<section id="skills" data-title="Skills" style="height: 500px"><p>` + skillsText + `</p>
  <div data-skill="go" data-level="90">Go</div>
  <div data-skill="rust">Rust</div>
</section>
<div id="tiny" style="height: 50px">` + strings.Repeat("tiny but wordy ", 6) + `</div>
<div id="short" style="height: 300px">too short</div>
<section id="testimonials" style="height: 400px"><h2></h2>
  <div data-section="testimonials" data-index="0">` + testimonialText + `</div>
</section>
<section id="contact" style="height: 300px"><h2>Contact</h2><p>` + contactText + `</p>
  <form>
    <input name="name" placeholder="Your name">
    <input id="email-address" type="email">
    <textarea name="message" placeholder="Your message"></textarea>
    <button type="submit">Send</button>
  </form>
</section>
</body></html>`

func newPage(t *testing.T) *infra.StaticPage {
	t.Helper()
	page, err := infra.NewStaticPageFromHTML(portfolioHTML)
	require.NoError(t, err)
	return page
}

func snapshot(t *testing.T, page Page) *dom.Snapshot {
	t.Helper()
	snap, err := page.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

// fakeClock collects AfterFunc timers so tests fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) timer(i int) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[i]
}

// fire runs a live timer's callback.
func (c *fakeClock) fire(i int) {
	t := c.timer(i)
	if !t.stopped {
		t.stopped = true
		t.f()
	}
}

func newManager(t *testing.T) (*BrowserToolManager, *infra.StaticPage, *fakeClock) {
	t.Helper()
	page := newPage(t)
	m := NewBrowserToolManager(page)
	clock := &fakeClock{}
	m.highlighter.afterFunc = clock.afterFunc
	return m, page, clock
}
