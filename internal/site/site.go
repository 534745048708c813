package site

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	pkgLogger "github.com/fpt/cobrowse/pkg/logger"
)

// Submission is one contact form post. Nothing is delivered; submissions are
// logged and kept in memory for inspection.
type Submission struct {
	Name    string
	Email   string
	Message string
}

// Site serves the portfolio page and the simulated contact endpoint.
type Site struct {
	portfolio *Portfolio
	persona   *Persona
	logger    *pkgLogger.Logger

	mu          sync.Mutex
	submissions []Submission
}

// New builds a Site from loaded content.
func New(portfolio *Portfolio, persona *Persona) *Site {
	return &Site{
		portfolio: portfolio,
		persona:   persona,
		logger:    pkgLogger.NewComponentLogger("site"),
	}
}

// Load reads portfolio data and persona from the given paths; empty paths
// select the embedded defaults.
func Load(dataPath, personaPath string) (*Site, error) {
	portfolio, err := LoadPortfolio(dataPath)
	if err != nil {
		return nil, err
	}
	persona, err := LoadPersona(personaPath)
	if err != nil {
		return nil, err
	}
	if persona.Owner == "" {
		persona.Owner = portfolio.Owner.Name
	}
	return New(portfolio, persona), nil
}

func (s *Site) Portfolio() *Portfolio { return s.portfolio }
func (s *Site) Persona() *Persona     { return s.persona }

// Owner is the display name used in the system instruction.
func (s *Site) Owner() string {
	if s.persona.Owner != "" {
		return s.persona.Owner
	}
	return s.portfolio.Owner.Name
}

// Submissions returns a copy of the contact form posts received so far.
func (s *Site) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// hasPage accepts "/", "/contact" and one alias per advertised section.
func (s *Site) hasPage(path string) bool {
	path = strings.TrimSuffix(path, "/")
	if path == "" || path == "/contact" {
		return true
	}
	for _, id := range s.persona.Sections {
		if path == "/"+id {
			return true
		}
	}
	return false
}

// LoadPage has the infra.PageLoader signature; the in-memory page reloads
// through it on path navigation.
func (s *Site) LoadPage(_ context.Context, path string) (io.Reader, error) {
	if !s.hasPage(path) {
		return nil, fmt.Errorf("page not found: %s", path)
	}
	var buf bytes.Buffer
	if err := Render(&buf, s.portfolio, s.persona.Sections, StatusNone); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return &buf, nil
}

// ServeHTTP renders the page on GET and records the contact form on POST /contact.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.hasPage(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	status := StatusNone
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		if strings.TrimSuffix(r.URL.Path, "/") != "/contact" {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status = s.submit(r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := Render(&buf, s.portfolio, s.persona.Sections, status); err != nil {
		s.logger.ErrorWithIntention(pkgLogger.IntentionError, "Failed to render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == StatusError {
		w.WriteHeader(http.StatusBadRequest)
	}
	_, _ = buf.WriteTo(w)
}

func (s *Site) submit(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		s.logger.WarnWithIntention(pkgLogger.IntentionWarning, "Invalid contact form", "error", err)
		return StatusError
	}
	sub := Submission{
		Name:    strings.TrimSpace(r.PostForm.Get("name")),
		Email:   strings.TrimSpace(r.PostForm.Get("email")),
		Message: strings.TrimSpace(r.PostForm.Get("message")),
	}
	if sub.Name == "" || sub.Email == "" || sub.Message == "" {
		return StatusError
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()

	s.logger.InfoWithIntention(pkgLogger.IntentionSuccess, "Contact form submitted",
		"name", sub.Name, "email", sub.Email, "message_len", len(sub.Message))
	return StatusSuccess
}
