package tool

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/fpt/cobrowse/internal/dom"
)

// Extraction thresholds.
const (
	// reservedSectionID is the landing section, never reported.
	reservedSectionID = "home"
	maxContentLength  = 1000
	minSectionText    = 50
	minSectionHeight  = 100
	minExperienceText = 100
	minTestimonyText  = 50
	summaryPreviewLen = 200
)

// Section is a discovered region of the page.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	ElementType string   `json:"elementType"`
	Position    dom.Box  `json:"position"`
	Selectors   []string `json:"selectors"`
}

// ExtractVisibleContent lists the page's sections ordered by vertical position.
// Generic sections come from id-bearing section and div elements; experience
// entries, skill gauges and testimonials come from their data-* markers.
func ExtractVisibleContent(snap *dom.Snapshot) []Section {
	sections := genericSections(snap)
	sections = append(sections, experienceSections(snap)...)
	sections = append(sections, skillSections(snap)...)
	sections = append(sections, testimonialSections(snap)...)

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position.Top < sections[j].Position.Top
	})
	return sections
}

func genericSections(snap *dom.Snapshot) []Section {
	nodes, _ := snap.QueryAll("section[id], div[id]")

	var out []Section
	for _, n := range nodes {
		id, _ := dom.Attr(n, "id")
		if id == "" || id == reservedSectionID {
			continue
		}
		text := dom.TrimmedText(n)
		box := snap.Box(n)
		if utf8.RuneCountInString(text) < minSectionText || box.Height < minSectionHeight {
			continue
		}
		out = append(out, Section{
			ID:          id,
			Title:       sectionTitle(n, id),
			Content:     sectionContent(text),
			ElementType: dom.Tag(n),
			Position:    box,
			Selectors:   sectionSelectors(n, id),
		})
	}
	return out
}

func experienceSections(snap *dom.Snapshot) []Section {
	nodes, _ := snap.QueryAll(`[data-section="experience"]`)

	var out []Section
	for i, n := range nodes {
		text := dom.TrimmedText(n)
		if utf8.RuneCountInString(text) <= minExperienceText {
			continue
		}
		out = append(out, Section{
			ID:          fmt.Sprintf("experience-%d", i),
			Title:       fmt.Sprintf("Experience %d", i+1),
			Content:     sectionContent(text),
			ElementType: "div",
			Position:    snap.Box(n),
			Selectors:   []string{fmt.Sprintf(`[data-section="experience"][data-index="%d"]`, i)},
		})
	}
	return out
}

func skillSections(snap *dom.Snapshot) []Section {
	nodes, _ := snap.QueryAll("[data-skill]")

	var out []Section
	for _, n := range nodes {
		name, _ := dom.Attr(n, "data-skill")
		level, ok := dom.Attr(n, "data-level")
		if !ok || name == "" || level == "" {
			continue
		}
		out = append(out, Section{
			ID:          "skill-" + name,
			Title:       "Skill: " + name,
			Content:     dom.Truncate(fmt.Sprintf("%s - %s%% proficiency", name, level), maxContentLength),
			ElementType: "div",
			Position:    snap.Box(n),
			Selectors:   []string{fmt.Sprintf(`[data-skill="%s"]`, cssString(name))},
		})
	}
	return out
}

func testimonialSections(snap *dom.Snapshot) []Section {
	nodes, _ := snap.QueryAll(`[data-section="testimonials"]`)

	var out []Section
	for i, n := range nodes {
		text := dom.TrimmedText(n)
		if utf8.RuneCountInString(text) <= minTestimonyText {
			continue
		}
		out = append(out, Section{
			ID:          fmt.Sprintf("testimonial-%d", i),
			Title:       fmt.Sprintf("Testimonial %d", i+1),
			Content:     sectionContent(text),
			ElementType: "div",
			Position:    snap.Box(n),
			Selectors:   []string{fmt.Sprintf(`[data-section="testimonials"][data-index="%d"]`, i)},
		})
	}
	return out
}

// sectionContent caps raw text at maxContentLength, then collapses
// whitespace runs for the prompt. Thresholds are measured on the raw text.
func sectionContent(raw string) string {
	return dom.CollapseWhitespace(dom.Truncate(raw, maxContentLength))
}

var headingSel, _ = dom.Compile("h1, h2, h3, h4, h5, h6")

// sectionTitle prefers the first heading, then data-title, then the
// capitalised id. An empty heading yields the bare id.
func sectionTitle(n *html.Node, id string) string {
	if h := dom.First(n, headingSel); h != nil {
		if t := dom.VisibleText(h); t != "" {
			return t
		}
		return id
	}
	if t, ok := dom.Attr(n, "data-title"); ok && t != "" {
		return t
	}
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + id[size:]
}

func sectionSelectors(n *html.Node, id string) []string {
	selectors := []string{"#" + id}
	for _, cls := range dom.Classes(n) {
		if !strings.Contains(cls, ":") {
			selectors = append(selectors, "."+cls)
		}
	}
	return append(selectors, fmt.Sprintf(`[data-section="%s"]`, cssString(id)))
}

// FindElementByContent returns the first element in document order whose text
// contains search case-insensitively, with a selector that resolves to it.
// The scan covers the whole document, so a broad match such as the html
// element itself is possible.
func FindElementByContent(snap *dom.Snapshot, search string) (*html.Node, string, bool) {
	needle := strings.ToLower(search)
	for _, n := range snap.Elements() {
		if strings.Contains(strings.ToLower(dom.TextContent(n)), needle) {
			return n, dom.UniqueSelector(n), true
		}
	}
	return nil, "", false
}

// PageSummary renders the digest the model sees: one "[title]: preview..."
// entry per section, separated by blank lines.
func PageSummary(snap *dom.Snapshot) string {
	return FormatSummary(ExtractVisibleContent(snap))
}

// FormatSummary renders sections as a digest.
func FormatSummary(sections []Section) string {
	entries := make([]string, 0, len(sections))
	for _, s := range sections {
		entries = append(entries, fmt.Sprintf("[%s]: %s...", s.Title, dom.Truncate(s.Content, summaryPreviewLen)))
	}
	return strings.Join(entries, "\n\n")
}

// cssString escapes a value for use inside a double-quoted CSS string.
func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
