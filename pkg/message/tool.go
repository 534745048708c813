package message

import (
	"encoding/json"
	"fmt"
)

type ToolName string
type ToolDescription string

// ToolArgumentValues is the loosely typed parameter bag a model proposes.
type ToolArgumentValues map[string]any

func (t ToolName) String() string {
	return string(t)
}

func (t ToolDescription) String() string {
	return string(t)
}

// ToolInvocation is one requested action: {"name": ..., "parameters": {...}}.
type ToolInvocation struct {
	Name       ToolName           `json:"name"`
	Parameters ToolArgumentValues `json:"parameters"`
}

// NewToolInvocation builds an invocation; nil parameters become an empty bag.
func NewToolInvocation(name ToolName, params ToolArgumentValues) ToolInvocation {
	if params == nil {
		params = ToolArgumentValues{}
	}
	return ToolInvocation{Name: name, Parameters: params}
}

// String renders the invocation as the compact JSON the model emits.
func (t ToolInvocation) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Sprintf("%s(%v)", t.Name, t.Parameters)
	}
	return string(b)
}

// ActionOutcome is the result of executing one invocation. There is no
// partial success.
type ActionOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewActionSuccess(msg string, data any) ActionOutcome {
	return ActionOutcome{Success: true, Message: msg, Data: data}
}

func NewActionFailure(msg string) ActionOutcome {
	return ActionOutcome{Success: false, Message: msg}
}

// ToolArgument documents one parameter of a tool for the model prompt.
type ToolArgument struct {
	Name        ToolName
	Description ToolDescription
	Required    bool
	Type        string
}
