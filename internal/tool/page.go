package tool

import (
	"context"

	"github.com/fpt/cobrowse/internal/dom"
)

// Page is the live document the browser tools act on. Refs come from the
// page's own snapshots and stay valid while the element is attached.
type Page interface {
	// Snapshot captures the current DOM and layout
	Snapshot(ctx context.Context) (*dom.Snapshot, error)
	// ScrollIntoView smooth-scrolls the element to the top of the viewport
	ScrollIntoView(ctx context.Context, ref dom.Ref) error
	// Click dispatches a synthetic click on the element
	Click(ctx context.Context, ref dom.Ref) error
	// SetValue assigns a form control's value and fires a bubbling input event
	SetValue(ctx context.Context, ref dom.Ref, value string) error
	// Styles reads inline style properties; unset properties map to ""
	Styles(ctx context.Context, ref dom.Ref, props []string) (map[string]string, error)
	// SetStyles writes inline style properties; "" clears a property
	SetStyles(ctx context.Context, ref dom.Ref, styles map[string]string) error
	// SetClass adds (on) or removes a class
	SetClass(ctx context.Context, ref dom.Ref, class string, on bool) error
	// Navigate changes the page location to a relative URL or anchor
	Navigate(ctx context.Context, url string) error
}
