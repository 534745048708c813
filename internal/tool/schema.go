package tool

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/fpt/cobrowse/pkg/message"
)

var paramTypes = map[message.ToolName]reflect.Type{
	ToolScrollToSection:  reflect.TypeOf(ScrollToSection{}),
	ToolHighlightElement: reflect.TypeOf(HighlightElement{}),
	ToolClickElement:     reflect.TypeOf(ClickElement{}),
	ToolExtractContent:   reflect.TypeOf(ExtractContent{}),
	ToolFillForm:         reflect.TypeOf(FillForm{}),
	ToolGetPageSummary:   reflect.TypeOf(GetPageSummary{}),
	ToolNavigateTo:       reflect.TypeOf(NavigateTo{}),
}

// InputSchema returns the JSON Schema of a tool's typed parameters, inlined
// with no $ref indirection.
func InputSchema(name message.ToolName) (json.RawMessage, error) {
	typ, ok := paramTypes[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTool, string(name))
	}

	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Anonymous:                  true,
	}
	schema := reflector.ReflectFromType(typ)
	schema.Version = ""
	if schema.Properties == nil {
		schema.Properties = jsonschema.NewProperties()
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s schema", name)
	}
	return raw, nil
}
