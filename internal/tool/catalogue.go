package tool

import (
	"encoding/json"
	"strings"

	"github.com/fpt/cobrowse/pkg/message"
)

const (
	ToolScrollToSection  message.ToolName = "scroll_to_section"
	ToolHighlightElement message.ToolName = "highlight_element"
	ToolClickElement     message.ToolName = "click_element"
	ToolExtractContent   message.ToolName = "extract_content"
	ToolFillForm         message.ToolName = "fill_form"
	ToolGetPageSummary   message.ToolName = "get_page_summary"
	ToolNavigateTo       message.ToolName = "navigate_to"
)

// ParamDoc documents one parameter for the model: "type - meaning".
type ParamDoc struct {
	Name     string
	Doc      string
	Required bool
}

// Definition is one entry of the closed tool catalogue.
type Definition struct {
	Name        message.ToolName
	Description message.ToolDescription
	Params      []ParamDoc
}

// ParametersJSON renders the parameter docs as a JSON object in declaration
// order, e.g. {"selector":"string - CSS selector for the element"}.
func (d Definition) ParametersJSON() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(p.Name)
		v, _ := json.Marshal(p.Doc)
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.String()
}

// Arguments converts the docs into message.ToolArgument values.
func (d Definition) Arguments() []message.ToolArgument {
	args := make([]message.ToolArgument, 0, len(d.Params))
	for _, p := range d.Params {
		typ, desc, _ := strings.Cut(p.Doc, " - ")
		args = append(args, message.ToolArgument{
			Name:        message.ToolName(p.Name),
			Description: message.ToolDescription(desc),
			Required:    p.Required,
			Type:        typ,
		})
	}
	return args
}

var catalogue = []Definition{
	{
		Name:        ToolScrollToSection,
		Description: "Scroll to a specific section of the page",
		Params: []ParamDoc{
			{Name: "sectionId", Doc: "string - The ID of the section to scroll to", Required: true},
		},
	},
	{
		Name:        ToolHighlightElement,
		Description: "Highlight an element on the page",
		Params: []ParamDoc{
			{Name: "selector", Doc: "string - CSS selector for the element", Required: true},
			{Name: "duration", Doc: "number - Highlight duration in milliseconds (optional)"},
		},
	},
	{
		Name:        ToolClickElement,
		Description: "Click on an element",
		Params: []ParamDoc{
			{Name: "selector", Doc: "string - CSS selector for the element", Required: true},
		},
	},
	{
		Name:        ToolExtractContent,
		Description: "Extract visible content from the page",
	},
	{
		Name:        ToolFillForm,
		Description: "Fill a form field with a value",
		Params: []ParamDoc{
			{Name: "field", Doc: "string - Name or ID of the form field", Required: true},
			{Name: "value", Doc: "string - Value to fill", Required: true},
		},
	},
	{
		Name:        ToolGetPageSummary,
		Description: "Get a summary of the page content",
	},
	{
		Name:        ToolNavigateTo,
		Description: "Navigate to a different page or section",
		Params: []ParamDoc{
			{Name: "url", Doc: "string - URL or section ID to navigate to", Required: true},
		},
	},
}

// Catalogue returns the seven tool definitions in their fixed order. The
// result is a fresh copy on every call.
func Catalogue() []Definition {
	out := make([]Definition, len(catalogue))
	for i, d := range catalogue {
		d.Params = append([]ParamDoc(nil), d.Params...)
		out[i] = d
	}
	return out
}

// Lookup finds a definition by name.
func Lookup(name message.ToolName) (Definition, bool) {
	for _, d := range catalogue {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Known reports whether name is in the catalogue.
func Known(name message.ToolName) bool {
	_, ok := Lookup(name)
	return ok
}

// Names lists the catalogue's tool names in order.
func Names() []message.ToolName {
	names := make([]message.ToolName, 0, len(catalogue))
	for _, d := range catalogue {
		names = append(names, d.Name)
	}
	return names
}
