package app

import (
	"context"
	"fmt"

	"github.com/fpt/cobrowse/internal/infra"
	"github.com/fpt/cobrowse/internal/site"
	"github.com/fpt/cobrowse/internal/tool"
)

// PageFactory opens a fresh page for a new session. The returned function
// releases it.
type PageFactory func(ctx context.Context) (tool.Page, func(), error)

// StaticPageFactory serves every session its own in-memory copy of the site.
func StaticPageFactory(s *site.Site, baseURL string) PageFactory {
	return func(ctx context.Context) (tool.Page, func(), error) {
		r, err := s.LoadPage(ctx, "/")
		if err != nil {
			return nil, nil, err
		}
		page, err := infra.NewStaticPage(r, baseURL+"/", s.LoadPage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create page: %w", err)
		}
		return page, func() {}, nil
	}
}

// RodPageFactory opens an isolated browser tab per session at url.
func RodPageFactory(b *infra.RodBrowser, url string) PageFactory {
	return func(ctx context.Context) (tool.Page, func(), error) {
		page, err := b.OpenPage(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return page, func() { _ = page.Close() }, nil
	}
}
