package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpt/cobrowse/internal/dom"
	"github.com/fpt/cobrowse/internal/tool"
)

func loadDefault(t *testing.T) *Site {
	t.Helper()
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestLoadEmbedded(t *testing.T) {
	s := loadDefault(t)

	if s.Owner() != "Alex Rivera" {
		t.Errorf("expected owner 'Alex Rivera', got %q", s.Owner())
	}
	if got := len(s.Portfolio().Experience); got != 3 {
		t.Errorf("expected 3 experience entries, got %d", got)
	}
	if got := strings.Join(s.Persona().Sections, ","); got != "about,experience,skills,testimonials,contact" {
		t.Errorf("unexpected sections: %s", got)
	}
	if s.Persona().SourcePath != "embedded:persona.md" {
		t.Errorf("unexpected source path %q", s.Persona().SourcePath)
	}
}

func TestLoadPortfolioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	data := "owner:\n  name: Sam Lee\nskills:\n  - category: Languages\n    items:\n      - {name: Rust, level: 70}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write portfolio: %v", err)
	}

	p, err := LoadPortfolio(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Owner.Name != "Sam Lee" {
		t.Errorf("expected owner 'Sam Lee', got %q", p.Owner.Name)
	}
	if p.Skills[0].Items[0].Key() != "rust" {
		t.Errorf("expected skill key 'rust', got %q", p.Skills[0].Items[0].Key())
	}

	if _, err := LoadPortfolio(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParsePortfolioValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"missing owner", "about:\n  focus: x\n", "owner name is required"},
		{"level out of range", "owner: {name: A}\nskills:\n  - items: [{name: Go, level: 120}]\n", "out of range"},
		{"duplicate skill", "owner: {name: A}\nskills:\n  - items: [{name: Go, level: 1}]\n  - items: [{name: go, level: 2}]\n", "duplicate skill"},
		{"bad yaml", "owner: [", "failed to parse portfolio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePortfolio([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParsePersonaMD(t *testing.T) {
	t.Run("with frontmatter", func(t *testing.T) {
		p, err := ParsePersonaMD([]byte("---\nowner: Sam\nsections: [about, contact]\n---\n\nKey facts.\n"), "/tmp/persona.md")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Owner != "Sam" || p.Content != "Key facts." {
			t.Errorf("unexpected persona: %+v", p)
		}
		if strings.Join(p.Sections, ",") != "about,contact" {
			t.Errorf("unexpected sections %v", p.Sections)
		}
	})

	t.Run("no frontmatter", func(t *testing.T) {
		p, err := ParsePersonaMD([]byte("Just facts.\n"), "x.md")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Owner != "" || p.Content != "Just facts." || len(p.Sections) != 5 {
			t.Errorf("unexpected persona: %+v", p)
		}
	})

	t.Run("unclosed frontmatter", func(t *testing.T) {
		p, err := ParsePersonaMD([]byte("---\nowner: Sam\nbody"), "x.md")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(p.Content, "owner: Sam") {
			t.Errorf("expected whole file as body, got %q", p.Content)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := ParsePersonaMD([]byte("---\nsections: [\n---\nbody\n"), "x.md"); err == nil {
			t.Error("expected frontmatter error")
		}
	})
}

func TestSystemInstruction(t *testing.T) {
	p := &Persona{Owner: "Sam", Sections: DefaultSections, Content: "Key facts:\n- Likes Go."}

	want := "You are a co-browsing assistant for Jo's portfolio website.\n" +
		"\nResponsibilities:\n" +
		"- Answer questions about experience, skills, projects, and education\n" +
		"- Navigate, scroll, highlight, and interact with the page\n" +
		"- Extract and summarize content\n" +
		"\nAvailable sections:\n" +
		"about, experience, skills, testimonials, contact\n" +
		"\nUse tools when required. Never mention internal tool systems.\n" +
		"\nKey facts:\n- Likes Go.\n"
	if got := p.SystemInstruction("Jo"); got != want {
		t.Errorf("unexpected instruction:\n%s", got)
	}

	if got := p.SystemInstruction(""); !strings.HasPrefix(got, "You are a co-browsing assistant for Sam's") {
		t.Errorf("expected persona owner fallback, got %q", got)
	}
}

func TestRenderHonorsAttributeContract(t *testing.T) {
	s := loadDefault(t)
	markup, err := RenderString(s.Portfolio(), s.Persona().Sections, StatusNone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap, err := dom.ParseHTML(strings.NewReader(markup), "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"home", "about", "experience", "skills", "testimonials", "contact"} {
		if snap.ElementByID(id) == nil {
			t.Errorf("missing section #%s", id)
		}
	}

	ids := make(map[string]bool)
	for _, sec := range tool.ExtractVisibleContent(snap) {
		ids[sec.ID] = true
	}
	for _, id := range []string{
		"about", "experience", "skills", "testimonials", "contact",
		"experience-0", "experience-2", "testimonial-1",
		"skill-go", "skill-nlp & llms", "skill-ci/cd",
	} {
		if !ids[id] {
			t.Errorf("expected extracted section %q", id)
		}
	}
	if ids["home"] {
		t.Error("home must not be extracted")
	}

	gauge, err := snap.Query(`[data-skill="go"]`)
	if err != nil || gauge == nil {
		t.Fatalf("skill gauge not found: %v", err)
	}
	if level, _ := dom.Attr(gauge, "data-level"); level != "90" {
		t.Errorf("expected data-level 90, got %q", level)
	}

	for _, sel := range []string{`[name="name"]`, `#email`, `textarea[placeholder*="Alex Rivera"]`} {
		if n, _ := snap.Query(sel); n == nil {
			t.Errorf("contact form field %s not found", sel)
		}
	}
}

func TestLoadPage(t *testing.T) {
	s := loadDefault(t)

	for _, path := range []string{"/", "/about", "/contact", "/skills/"} {
		r, err := s.LoadPage(context.Background(), path)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", path, err)
			continue
		}
		b, _ := io.ReadAll(r)
		if !strings.Contains(string(b), `id="experience"`) {
			t.Errorf("%s: expected rendered page", path)
		}
	}

	if _, err := s.LoadPage(context.Background(), "/admin"); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestServeHTTP(t *testing.T) {
	s := loadDefault(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("unexpected content type %q", ct)
		}
	})

	t.Run("not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/admin")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("contact submit", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/contact", url.Values{
			"name": {"Jane"}, "email": {"jane@example.com"}, "message": {"Hi"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(body), "Message sent successfully!") {
			t.Error("expected success banner")
		}
		subs := s.Submissions()
		if len(subs) != 1 || subs[0].Email != "jane@example.com" {
			t.Errorf("unexpected submissions %+v", subs)
		}
	})

	t.Run("contact submit incomplete", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/contact", url.Values{"name": {"Jane"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), "Something went wrong. Please try again.") {
			t.Error("expected error banner")
		}
	})

	t.Run("post elsewhere", func(t *testing.T) {
		resp, err := http.PostForm(srv.URL+"/about", url.Values{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}
