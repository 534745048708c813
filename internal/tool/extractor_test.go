package tool

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/cobrowse/internal/dom"
)

func sectionIDs(sections []Section) []string {
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func findSection(t *testing.T, sections []Section, id string) Section {
	t.Helper()
	for _, s := range sections {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("section %s not found in %v", id, sectionIDs(sections))
	return Section{}
}

func TestExtractVisibleContent(t *testing.T) {
	snap := snapshot(t, newPage(t))
	sections := ExtractVisibleContent(snap)

	assert.Equal(t, []string{
		"about", "experience", "experience-0", "skills", "skill-go",
		"testimonials", "testimonial-0", "contact",
	}, sectionIDs(sections))

	for i := 1; i < len(sections); i++ {
		assert.LessOrEqual(t, sections[i-1].Position.Top, sections[i].Position.Top, "sections must be ordered by top")
	}
}

func TestExtractVisibleContentInvariants(t *testing.T) {
	snap := snapshot(t, newPage(t))
	for _, s := range ExtractVisibleContent(snap) {
		assert.LessOrEqual(t, utf8.RuneCountInString(s.Content), maxContentLength, s.ID)
		if strings.Contains(s.ID, "-") {
			continue
		}
		n := snap.ElementByID(s.ID)
		require.NotNil(t, n)
		assert.GreaterOrEqual(t, snap.Box(n).Height, float64(minSectionHeight), s.ID)
		assert.GreaterOrEqual(t, utf8.RuneCountInString(dom.TrimmedText(n)), minSectionText, s.ID)
	}
}

func TestGenericSectionFields(t *testing.T) {
	sections := ExtractVisibleContent(snapshot(t, newPage(t)))

	about := findSection(t, sections, "about")
	assert.Equal(t, "About Me", about.Title)
	assert.Equal(t, "section", about.ElementType)
	assert.Equal(t, dom.Box{Top: 600, Height: 400}, about.Position)
	assert.Equal(t, []string{"#about", ".py-16", `[data-section="about"]`}, about.Selectors)
	assert.Equal(t, maxContentLength, utf8.RuneCountInString(about.Content), "long content is truncated")
	assert.True(t, strings.HasPrefix(about.Content, "About Me"))

	assert.Equal(t, "Skills", findSection(t, sections, "skills").Title, "data-title is used without a heading")
	assert.Equal(t, "testimonials", findSection(t, sections, "testimonials").Title, "an empty heading yields the bare id")
}

func TestTitleFallsBackToCapitalisedID(t *testing.T) {
	snap := dom.MustParseHTML(`<body><div id="projects" style="height: 200px">` + strings.Repeat("project words ", 10) + `</div></body>`)
	sections := ExtractVisibleContent(snap)
	require.Len(t, sections, 1)
	assert.Equal(t, "Projects", sections[0].Title)
	assert.Equal(t, "div", sections[0].ElementType)
}

func TestSpecialisedSections(t *testing.T) {
	sections := ExtractVisibleContent(snapshot(t, newPage(t)))

	exp := findSection(t, sections, "experience-0")
	assert.Equal(t, "Experience 1", exp.Title)
	assert.Equal(t, "div", exp.ElementType)
	assert.Equal(t, []string{`[data-section="experience"][data-index="0"]`}, exp.Selectors)
	assert.Contains(t, exp.Content, "Staff Engineer")

	skill := findSection(t, sections, "skill-go")
	assert.Equal(t, "Skill: go", skill.Title)
	assert.Equal(t, "go - 90% proficiency", skill.Content)
	assert.Equal(t, []string{`[data-skill="go"]`}, skill.Selectors)

	testimonial := findSection(t, sections, "testimonial-0")
	assert.Equal(t, "Testimonial 1", testimonial.Title)
	assert.Equal(t, testimonialText, testimonial.Content)
	assert.Equal(t, []string{`[data-section="testimonials"][data-index="0"]`}, testimonial.Selectors)
}

func TestSectionThresholdsUseRawText(t *testing.T) {
	padded := "Open source" + strings.Repeat(" ", 45) + "maintainer"
	cut := strings.Repeat("a", 990) + strings.Repeat(" ", 20) + "tail"
	snap := dom.MustParseHTML(`<body>
<div id="padded" style="height: 200px">` + padded + `</div>
<div id="cut" style="height: 200px">` + cut + `</div>
</body>`)

	sections := ExtractVisibleContent(snap)
	require.Equal(t, []string{"padded", "cut"}, sectionIDs(sections))
	assert.Equal(t, "Open source maintainer", sections[0].Content)
	assert.Equal(t, strings.Repeat("a", 990)+" ", sections[1].Content, "the cap applies before whitespace is collapsed")
}

func TestFindElementByContent(t *testing.T) {
	snap := dom.MustParseHTML(`<html><body><div class="card"><p id="intro">Hello</p><span>Gopher Conf talk</span></div></body></html>`)

	n, selector, ok := FindElementByContent(snap, "gopher conf")
	require.True(t, ok)
	assert.Equal(t, "html", dom.Tag(n), "the scan is document order, so the root matches first")
	assert.Equal(t, "html", selector)

	_, _, ok = FindElementByContent(snap, "not on the page")
	assert.False(t, ok)
}

func TestPageSummary(t *testing.T) {
	sections := []Section{
		{Title: "About Me", Content: strings.Repeat("x", 300)},
		{Title: "Skill: go", Content: "go - 90% proficiency"},
	}
	want := "[About Me]: " + strings.Repeat("x", 200) + "...\n\n[Skill: go]: go - 90% proficiency..."
	assert.Equal(t, want, FormatSummary(sections))
	assert.Equal(t, "", FormatSummary(nil))

	digest := PageSummary(snapshot(t, newPage(t)))
	assert.True(t, strings.HasPrefix(digest, "[About Me]: About Me"))
	assert.Equal(t, 7, strings.Count(digest, "\n\n"))
}
