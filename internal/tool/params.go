package tool

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/fpt/cobrowse/pkg/message"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrMissingParameter = errors.New("missing required parameter")
)

// DefaultHighlightDuration applies when highlight_element omits duration.
const DefaultHighlightDuration = 3000 * time.Millisecond

// Call is a decoded tool invocation. Each tool has exactly one variant.
type Call interface {
	ToolName() message.ToolName
	validate() error
}

type ScrollToSection struct {
	SectionID string `mapstructure:"sectionId" json:"sectionId" jsonschema:"required,description=The ID of the section to scroll to"`
}

type HighlightElement struct {
	Selector string `mapstructure:"selector" json:"selector" jsonschema:"required,description=CSS selector for the element"`
	// DurationMS is the highlight lifetime in milliseconds; 0 means the default.
	DurationMS int `mapstructure:"duration" json:"duration,omitempty" jsonschema:"description=Highlight duration in milliseconds (optional)"`
}

type ClickElement struct {
	Selector string `mapstructure:"selector" json:"selector" jsonschema:"required,description=CSS selector for the element"`
}

type ExtractContent struct{}

type FillForm struct {
	Field string `mapstructure:"field" json:"field" jsonschema:"required,description=Name or ID of the form field"`
	Value string `mapstructure:"value" json:"value" jsonschema:"required,description=Value to fill"`
}

type GetPageSummary struct{}

type NavigateTo struct {
	URL string `mapstructure:"url" json:"url" jsonschema:"required,description=URL or section ID to navigate to"`
}

func (ScrollToSection) ToolName() message.ToolName  { return ToolScrollToSection }
func (HighlightElement) ToolName() message.ToolName { return ToolHighlightElement }
func (ClickElement) ToolName() message.ToolName     { return ToolClickElement }
func (ExtractContent) ToolName() message.ToolName   { return ToolExtractContent }
func (FillForm) ToolName() message.ToolName         { return ToolFillForm }
func (GetPageSummary) ToolName() message.ToolName   { return ToolGetPageSummary }
func (NavigateTo) ToolName() message.ToolName       { return ToolNavigateTo }

func (c ScrollToSection) validate() error  { return nonEmpty("sectionId", c.SectionID) }
func (c HighlightElement) validate() error { return nonEmpty("selector", c.Selector) }
func (c ClickElement) validate() error     { return nonEmpty("selector", c.Selector) }
func (ExtractContent) validate() error     { return nil }
func (c FillForm) validate() error         { return nonEmpty("field", c.Field) }
func (GetPageSummary) validate() error     { return nil }
func (NavigateTo) validate() error         { return nil }

// Duration returns the requested lifetime or DefaultHighlightDuration.
func (c HighlightElement) Duration() time.Duration {
	if c.DurationMS <= 0 {
		return DefaultHighlightDuration
	}
	return time.Duration(c.DurationMS) * time.Millisecond
}

func nonEmpty(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.Wrap(ErrMissingParameter, name)
	}
	return nil
}

// newCall returns a zero variant for a tool name.
func newCall(name message.ToolName) (Call, bool) {
	switch name {
	case ToolScrollToSection:
		return &ScrollToSection{}, true
	case ToolHighlightElement:
		return &HighlightElement{}, true
	case ToolClickElement:
		return &ClickElement{}, true
	case ToolExtractContent:
		return &ExtractContent{}, true
	case ToolFillForm:
		return &FillForm{}, true
	case ToolGetPageSummary:
		return &GetPageSummary{}, true
	case ToolNavigateTo:
		return &NavigateTo{}, true
	}
	return nil, false
}

// Decode converts a loosely typed invocation into its typed variant. It fails
// with ErrUnknownTool for names outside the catalogue and ErrMissingParameter
// when a required parameter is absent or empty. Numbers and strings are
// converted weakly, so "1500" and 1500.0 both decode as a duration.
func Decode(inv message.ToolInvocation) (Call, error) {
	def, ok := Lookup(inv.Name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownTool, string(inv.Name))
	}
	for _, p := range def.Params {
		if v, present := inv.Parameters[p.Name]; p.Required && (!present || v == nil) {
			return nil, errors.Wrap(ErrMissingParameter, p.Name)
		}
	}

	call, _ := newCall(inv.Name)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           call,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, errors.Wrap(err, "build decoder")
	}
	if err := dec.Decode(map[string]any(inv.Parameters)); err != nil {
		return nil, errors.Wrapf(err, "decode %s parameters", inv.Name)
	}

	typed := deref(call)
	if err := typed.validate(); err != nil {
		return nil, err
	}
	return typed, nil
}

// deref turns the pointer used for decoding back into a value variant so
// callers can type-switch on plain struct types.
func deref(c Call) Call {
	switch v := c.(type) {
	case *ScrollToSection:
		return *v
	case *HighlightElement:
		return *v
	case *ClickElement:
		return *v
	case *ExtractContent:
		return *v
	case *FillForm:
		return *v
	case *GetPageSummary:
		return *v
	case *NavigateTo:
		return *v
	}
	panic(fmt.Sprintf("unhandled call type %T", c))
}
