package tool

import (
	"context"
	"sync"
	"time"

	"github.com/fpt/cobrowse/internal/dom"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// Highlight appearance.
const (
	HighlightClass      = "animate-pulse-glow"
	highlightBorder     = "3px solid #3b82f6"
	highlightShadow     = "0 0 20px rgba(59, 130, 246, 0.5)"
	highlightTransition = "all 0.3s ease"
	revertTimeout       = 5 * time.Second
)

var highlightProps = []string{"border", "box-shadow", "transition"}

type stopper interface {
	Stop() bool
}

// effect is one element's pending revert. saved always holds the style from
// before the first of any overlapping highlights.
type effect struct {
	saved    map[string]string
	hadClass bool
	timer    stopper
	gen      uint64
}

// Highlighter applies highlight styles and reverts them after a delay.
// Re-highlighting an element cancels its pending revert and starts a new one,
// so the latest request decides when the element returns to normal.
type Highlighter struct {
	page   Page
	logger *pkgLogger.Logger

	mu      sync.Mutex
	pending map[dom.Ref]*effect
	gen     uint64

	afterFunc func(d time.Duration, f func()) stopper
}

func NewHighlighter(page Page) *Highlighter {
	return &Highlighter{
		page:    page,
		logger:  pkgLogger.NewComponentLogger("highlighter"),
		pending: make(map[dom.Ref]*effect),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Highlight styles the element and schedules its revert after d. hadClass
// says whether the element carried HighlightClass before any highlight.
// A pending revert is only replaced once the new styles are applied; if
// applying fails, the earlier revert still runs, or the element is restored
// at once when nothing was pending.
func (h *Highlighter) Highlight(ctx context.Context, ref dom.Ref, hadClass bool, d time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.pending[ref]
	eff := &effect{hadClass: hadClass}
	if prev != nil {
		eff.saved = prev.saved
		eff.hadClass = prev.hadClass
	} else {
		saved, err := h.page.Styles(ctx, ref, highlightProps)
		if err != nil {
			return err
		}
		eff.saved = saved
	}

	if err := h.apply(ctx, ref); err != nil {
		if prev == nil {
			h.revert(ref, eff)
		}
		return err
	}

	if prev != nil {
		prev.timer.Stop()
	}
	h.gen++
	eff.gen = h.gen
	gen := eff.gen
	eff.timer = h.afterFunc(d, func() { h.expire(ref, gen) })
	h.pending[ref] = eff
	return nil
}

func (h *Highlighter) apply(ctx context.Context, ref dom.Ref) error {
	if err := h.page.SetStyles(ctx, ref, map[string]string{
		"border":     highlightBorder,
		"box-shadow": highlightShadow,
		"transition": highlightTransition,
	}); err != nil {
		return err
	}
	return h.page.SetClass(ctx, ref, HighlightClass, true)
}

// expire reverts ref unless a newer highlight replaced the effect.
func (h *Highlighter) expire(ref dom.Ref, gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	eff := h.pending[ref]
	if eff == nil || eff.gen != gen {
		return
	}
	delete(h.pending, ref)
	h.revert(ref, eff)
}

// revert must be called with h.mu held.
func (h *Highlighter) revert(ref dom.Ref, eff *effect) {
	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()

	if err := h.page.SetStyles(ctx, ref, eff.saved); err != nil {
		h.logger.Warn("Failed to restore element style", "ref", int(ref), "error", err)
	}
	if !eff.hadClass {
		if err := h.page.SetClass(ctx, ref, HighlightClass, false); err != nil {
			h.logger.Warn("Failed to remove highlight class", "ref", int(ref), "error", err)
		}
	}
}

// Pending returns the number of elements awaiting revert.
func (h *Highlighter) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Reset cancels every pending revert and restores the elements immediately.
func (h *Highlighter) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ref, eff := range h.pending {
		eff.timer.Stop()
		h.revert(ref, eff)
	}
	h.pending = make(map[dom.Ref]*effect)
}
