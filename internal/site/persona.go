package site

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSections are the page sections the assistant advertises to the model.
var DefaultSections = []string{"about", "experience", "skills", "testimonials", "contact"}

// Persona is a parsed persona markdown file: YAML frontmatter followed by a
// markdown body of key facts appended to the system instruction.
type Persona struct {
	Owner      string
	Sections   []string
	Content    string // markdown body after frontmatter
	SourcePath string // filesystem path or "embedded:persona.md"
}

type personaFrontmatter struct {
	Owner    string   `yaml:"owner"`
	Sections []string `yaml:"sections"`
}

// LoadPersona reads the persona at path, or the embedded one when path is empty.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		data, err := embeddedData.ReadFile(embeddedPersonaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded persona: %w", err)
		}
		return ParsePersonaMD(data, "embedded:persona.md")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona: %w", err)
	}
	return ParsePersonaMD(data, path)
}

// ParsePersonaMD parses persona markdown.
// Format: optional YAML frontmatter between "---" delimiters, then markdown body.
func ParsePersonaMD(data []byte, sourcePath string) (*Persona, error) {
	content := string(data)
	p := &Persona{SourcePath: sourcePath}

	trimmed := strings.TrimLeft(content, " \t\n\r")
	if !strings.HasPrefix(trimmed, "---") {
		p.Content = strings.TrimSpace(content)
		p.Sections = DefaultSections
		return p, nil
	}

	afterFirst := trimmed[3:]
	idx := strings.Index(afterFirst, "\n")
	if idx < 0 {
		p.Sections = DefaultSections
		return p, nil
	}
	afterFirst = afterFirst[idx+1:]

	closingIdx := strings.Index(afterFirst, "\n---")
	if closingIdx < 0 {
		// No closing delimiter, the whole file is body
		p.Content = strings.TrimSpace(content)
		p.Sections = DefaultSections
		return p, nil
	}

	yamlBlock := afterFirst[:closingIdx]
	rest := afterFirst[closingIdx+4:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		p.Content = strings.TrimSpace(rest[nl+1:])
	}

	var fm personaFrontmatter
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
		return nil, fmt.Errorf("failed to parse persona frontmatter: %w", err)
	}
	p.Owner = strings.TrimSpace(fm.Owner)
	p.Sections = fm.Sections
	if len(p.Sections) == 0 {
		p.Sections = DefaultSections
	}
	return p, nil
}

// SystemInstruction renders the model's system instruction for owner. An
// empty owner falls back to the persona's own.
func (p *Persona) SystemInstruction(owner string) string {
	if owner == "" {
		owner = p.Owner
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a co-browsing assistant for %s's portfolio website.\n", owner)
	b.WriteString("\nResponsibilities:\n")
	b.WriteString("- Answer questions about experience, skills, projects, and education\n")
	b.WriteString("- Navigate, scroll, highlight, and interact with the page\n")
	b.WriteString("- Extract and summarize content\n")
	b.WriteString("\nAvailable sections:\n")
	b.WriteString(strings.Join(p.Sections, ", "))
	b.WriteString("\n\nUse tools when required. Never mention internal tool systems.\n")
	if p.Content != "" {
		b.WriteString("\n")
		b.WriteString(p.Content)
		b.WriteString("\n")
	}
	return b.String()
}
