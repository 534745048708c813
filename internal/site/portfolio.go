package site

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/portfolio.yaml data/persona.md
var embeddedData embed.FS

const (
	embeddedPortfolioPath = "data/portfolio.yaml"
	embeddedPersonaPath   = "data/persona.md"
)

// Portfolio is the content of the site, loaded from YAML.
type Portfolio struct {
	Owner        Owner           `yaml:"owner"`
	About        About           `yaml:"about"`
	Experience   []Experience    `yaml:"experience"`
	Skills       []SkillCategory `yaml:"skills"`
	Testimonials []Testimonial   `yaml:"testimonials"`
	Education    []Education     `yaml:"education"`
	Contact      Contact         `yaml:"contact"`
}

type Owner struct {
	Name            string   `yaml:"name"`
	Headline        string   `yaml:"headline"`
	Roles           []string `yaml:"roles"`
	Location        string   `yaml:"location"`
	YearsExperience string   `yaml:"years_experience"`
	Links           []Link   `yaml:"links"`
}

type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

type About struct {
	Paragraphs []string `yaml:"paragraphs"`
	Focus      string   `yaml:"focus"`
}

type Experience struct {
	Role         string   `yaml:"role"`
	Company      string   `yaml:"company"`
	Period       string   `yaml:"period"`
	Duration     string   `yaml:"duration"`
	Description  string   `yaml:"description"`
	Achievements []string `yaml:"achievements"`
	Tags         []string `yaml:"tags"`
}

type SkillCategory struct {
	Category string  `yaml:"category"`
	Items    []Skill `yaml:"items"`
}

// Skill is a named proficiency from 0 to 100.
type Skill struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

// Key is the data-skill attribute value.
func (s Skill) Key() string {
	return strings.ToLower(s.Name)
}

type Testimonial struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
	Quote  string `yaml:"quote"`
	Rating int    `yaml:"rating"`
}

type Education struct {
	Institution string `yaml:"institution"`
	Degree      string `yaml:"degree"`
	Period      string `yaml:"period"`
	Details     string `yaml:"details"`
}

type Contact struct {
	Email        string   `yaml:"email"`
	Intro        string   `yaml:"intro"`
	AvailableFor []string `yaml:"available_for"`
}

// LoadPortfolio reads portfolio YAML from path, or the embedded sample when
// path is empty.
func LoadPortfolio(path string) (*Portfolio, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = embeddedData.ReadFile(embeddedPortfolioPath)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}
	return ParsePortfolio(data)
}

// ParsePortfolio decodes and validates portfolio YAML.
func ParsePortfolio(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the fields the rendered page depends on.
func (p *Portfolio) Validate() error {
	if strings.TrimSpace(p.Owner.Name) == "" {
		return fmt.Errorf("portfolio owner name is required")
	}
	seen := make(map[string]bool)
	for _, cat := range p.Skills {
		for _, s := range cat.Items {
			if s.Level < 0 || s.Level > 100 {
				return fmt.Errorf("skill %q: level %d out of range 0-100", s.Name, s.Level)
			}
			if seen[s.Key()] {
				return fmt.Errorf("duplicate skill %q", s.Name)
			}
			seen[s.Key()] = true
		}
	}
	return nil
}
