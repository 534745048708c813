package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fpt/cobrowse/internal/dom"
	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
	"github.com/fpt/cobrowse/pkg/message"
)

type callHandler func(ctx context.Context, snap *dom.Snapshot, call Call) (message.ActionOutcome, error)

// BrowserToolManager executes catalogue tools against a Page.
type BrowserToolManager struct {
	page        Page
	handlers    map[message.ToolName]callHandler
	highlighter *Highlighter
	logger      *pkgLogger.Logger
}

// NewBrowserToolManager wires every catalogue tool to its handler.
func NewBrowserToolManager(page Page) *BrowserToolManager {
	m := &BrowserToolManager{
		page:        page,
		handlers:    make(map[message.ToolName]callHandler),
		highlighter: NewHighlighter(page),
		logger:      pkgLogger.NewComponentLogger("browser-tools"),
	}

	m.registerHandler(ToolScrollToSection, m.handleScrollToSection)
	m.registerHandler(ToolHighlightElement, m.handleHighlightElement)
	m.registerHandler(ToolClickElement, m.handleClickElement)
	m.registerHandler(ToolExtractContent, m.handleExtractContent)
	m.registerHandler(ToolFillForm, m.handleFillForm)
	m.registerHandler(ToolGetPageSummary, m.handleGetPageSummary)
	m.registerHandler(ToolNavigateTo, m.handleNavigateTo)
	return m
}

func (m *BrowserToolManager) registerHandler(name message.ToolName, h callHandler) {
	if !Known(name) {
		panic(fmt.Sprintf("handler for %s has no catalogue entry", name))
	}
	m.handlers[name] = h
}

// Tools returns the catalogue this manager serves.
func (m *BrowserToolManager) Tools() []Definition {
	return Catalogue()
}

// HandledTools lists the names with a registered handler.
func (m *BrowserToolManager) HandledTools() []message.ToolName {
	names := make([]message.ToolName, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	return names
}

func (m *BrowserToolManager) Highlighter() *Highlighter {
	return m.highlighter
}

func (m *BrowserToolManager) Page() Page {
	return m.page
}

// Execute runs one invocation. Every failure, including a panic inside a
// handler, comes back as an unsuccessful outcome.
func (m *BrowserToolManager) Execute(ctx context.Context, inv message.ToolInvocation) (outcome message.ActionOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Tool handler panicked", "tool", inv.Name, "panic", r, "stack", string(debug.Stack()))
			outcome = message.NewActionFailure(fmt.Sprintf("Error executing tool: %v", r))
		}
		m.logger.DebugWithIntention(pkgLogger.IntentionTool, "Tool executed",
			"tool", inv.Name, "success", outcome.Success, "message", outcome.Message, "elapsed", time.Since(start))
	}()

	handler, ok := m.handlers[inv.Name]
	if !ok {
		return message.NewActionFailure(fmt.Sprintf("Unknown tool: %s", inv.Name))
	}
	call, err := Decode(inv)
	if err != nil {
		return message.NewActionFailure(fmt.Sprintf("Error executing tool: %v", err))
	}

	snap, err := m.page.Snapshot(ctx)
	if err != nil {
		return message.NewActionFailure(fmt.Sprintf("Error executing tool: %v", err))
	}
	outcome, err = handler(ctx, snap, call)
	if err != nil {
		return message.NewActionFailure(fmt.Sprintf("Error executing tool: %v", err))
	}
	return outcome
}

// Close restores every highlighted element.
func (m *BrowserToolManager) Close() {
	m.highlighter.Reset()
}

func (m *BrowserToolManager) handleScrollToSection(ctx context.Context, snap *dom.Snapshot, call Call) (message.ActionOutcome, error) {
	c := call.(ScrollToSection)

	if el := snap.ElementByID(c.SectionID); el != nil {
		if err := m.page.ScrollIntoView(ctx, snap.Ref(el)); err != nil {
			return message.ActionOutcome{}, err
		}
		return message.NewActionSuccess(fmt.Sprintf("Scrolled to %s section", c.SectionID), nil), nil
	}

	if el, selector, ok := FindElementByContent(snap, c.SectionID); ok {
		if err := m.page.ScrollIntoView(ctx, snap.Ref(el)); err != nil {
			return message.ActionOutcome{}, err
		}
		return message.NewActionSuccess(
			fmt.Sprintf("Scrolled to element containing %q", c.SectionID),
			map[string]any{"selector": selector},
		), nil
	}

	return message.NewActionFailure(fmt.Sprintf("Section %q not found", c.SectionID)), nil
}

func (m *BrowserToolManager) handleHighlightElement(ctx context.Context, snap *dom.Snapshot, call Call) (message.ActionOutcome, error) {
	c := call.(HighlightElement)

	el, err := snap.Query(c.Selector)
	if errors.Is(err, dom.ErrInvalidSelector) {
		return message.NewActionFailure(fmt.Sprintf("Invalid selector: %s", c.Selector)), nil
	}
	if err != nil {
		return message.ActionOutcome{}, err
	}
	if el == nil {
		return message.NewActionFailure(fmt.Sprintf("Element not found with selector: %s", c.Selector)), nil
	}

	d := c.Duration()
	if err := m.highlighter.Highlight(ctx, snap.Ref(el), dom.HasClass(el, HighlightClass), d); err != nil {
		return message.ActionOutcome{}, err
	}
	return message.NewActionSuccess(
		fmt.Sprintf("Highlighted element: %s", c.Selector),
		map[string]any{"selector": c.Selector, "duration": d.Milliseconds()},
	), nil
}

func (m *BrowserToolManager) handleClickElement(ctx context.Context, snap *dom.Snapshot, call Call) (message.ActionOutcome, error) {
	c := call.(ClickElement)

	el, err := snap.Query(c.Selector)
	if errors.Is(err, dom.ErrInvalidSelector) {
		return message.NewActionFailure(fmt.Sprintf("Invalid selector: %s", c.Selector)), nil
	}
	if err != nil {
		return message.ActionOutcome{}, err
	}
	if el == nil {
		return message.NewActionFailure(fmt.Sprintf("Element not found: %s", c.Selector)), nil
	}

	if err := m.page.Click(ctx, snap.Ref(el)); err != nil {
		return message.ActionOutcome{}, err
	}
	return message.NewActionSuccess(fmt.Sprintf("Clicked element: %s", c.Selector), nil), nil
}

func (m *BrowserToolManager) handleExtractContent(_ context.Context, snap *dom.Snapshot, _ Call) (message.ActionOutcome, error) {
	return message.NewActionSuccess("Extracted page content", ExtractVisibleContent(snap)), nil
}

// fieldSelectors are tried in order until one resolves.
var fieldSelectors = []string{
	`[name="%s"]`,
	`#%s`,
	`[id*="%s"]`,
	`[name*="%s"]`,
	`input[placeholder*="%s"]`,
	`textarea[placeholder*="%s"]`,
}

func (m *BrowserToolManager) handleFillForm(ctx context.Context, snap *dom.Snapshot, call Call) (message.ActionOutcome, error) {
	c := call.(FillForm)

	for _, pattern := range fieldSelectors {
		arg := cssString(c.Field)
		if strings.HasPrefix(pattern, "#") {
			arg = c.Field
		}
		el, err := snap.Query(fmt.Sprintf(pattern, arg))
		if err != nil || el == nil {
			continue
		}
		if err := m.page.SetValue(ctx, snap.Ref(el), c.Value); err != nil {
			return message.ActionOutcome{}, err
		}
		return message.NewActionSuccess(
			fmt.Sprintf("Filled %s with %q", c.Field, c.Value),
			map[string]any{"field": c.Field, "value": c.Value},
		), nil
	}

	return message.NewActionFailure(fmt.Sprintf("Form field %q not found", c.Field)), nil
}

func (m *BrowserToolManager) handleGetPageSummary(_ context.Context, snap *dom.Snapshot, _ Call) (message.ActionOutcome, error) {
	return message.NewActionSuccess("Page summary generated", PageSummary(snap)), nil
}

func (m *BrowserToolManager) handleNavigateTo(ctx context.Context, _ *dom.Snapshot, call Call) (message.ActionOutcome, error) {
	c := call.(NavigateTo)

	if !IsRelativeURL(c.URL) {
		return message.NewActionFailure("Only relative URLs are allowed for navigation"), nil
	}
	if err := m.page.Navigate(ctx, c.URL); err != nil {
		return message.ActionOutcome{}, err
	}
	return message.NewActionSuccess(fmt.Sprintf("Navigating to %s", c.URL), nil), nil
}

// IsRelativeURL accepts same-origin paths ("/about") and in-page anchors
// ("#contact"). Protocol-relative URLs ("//host") leave the origin and are refused.
func IsRelativeURL(u string) bool {
	switch {
	case strings.HasPrefix(u, "//"), strings.HasPrefix(u, `/\`):
		return false
	case strings.HasPrefix(u, "/"), strings.HasPrefix(u, "#"):
		return true
	}
	return false
}
