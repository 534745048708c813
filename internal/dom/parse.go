package dom

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// ParseHTML parses markup into a snapshot with estimated layout and fresh refs.
func ParseHTML(r io.Reader, url string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	root := doc.Nodes[0]
	return NewSnapshot(doc, url, IndexElements(root, nil), EstimateLayout(root), 0), nil
}

// MustParseHTML is ParseHTML over a string for fixtures; it panics on error.
func MustParseHTML(markup string) *Snapshot {
	s, err := ParseHTML(strings.NewReader(markup), "")
	if err != nil {
		panic(err)
	}
	return s
}
