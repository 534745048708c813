package message

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ParseStatus tells why a response did or did not yield a tool invocation.
type ParseStatus int

const (
	// ParseNoRegion: the text has no balanced {...} region at all.
	ParseNoRegion ParseStatus = iota
	// ParseInvalidJSON: a balanced region exists but is not a JSON object.
	ParseInvalidJSON
	// ParseMissingFields: the object lacks a string "name" or an object "parameters".
	ParseMissingFields
	// ParseFound: the region decoded into an invocation.
	ParseFound
)

func (s ParseStatus) String() string {
	switch s {
	case ParseNoRegion:
		return "no_region"
	case ParseInvalidJSON:
		return "invalid_json"
	case ParseMissingFields:
		return "missing_fields"
	case ParseFound:
		return "found"
	default:
		return "unknown"
	}
}

// ParsedToolCall is the result of scanning a model response.
type ParsedToolCall struct {
	Status     ParseStatus
	Invocation ToolInvocation
	// Region is the raw text of the first balanced region; Start and End are
	// its byte offsets in the scanned text.
	Region     string
	Start, End int
	// Additional counts balanced regions after the first. Only the first is used.
	Additional int
	Err        error
}

// Found reports whether an invocation was decoded.
func (p ParsedToolCall) Found() bool {
	return p.Status == ParseFound
}

// Strip removes a decoded call's region from text and trims the remainder.
// Text without a decoded call is only trimmed.
func (p ParsedToolCall) Strip(text string) string {
	if p.Status != ParseFound || p.End > len(text) || text[p.Start:p.End] != p.Region {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:p.Start] + text[p.End:])
}

// ExtractToolCall finds the first balanced brace region in text and tries to
// decode it as {"name": string, "parameters": object}.
func ExtractToolCall(text string) ParsedToolCall {
	start, end, ok := FindBalancedRegion(text, 0)
	if !ok {
		return ParsedToolCall{Status: ParseNoRegion}
	}

	res := ParsedToolCall{Region: text[start:end], Start: start, End: end}
	for from := end; ; {
		_, e, more := FindBalancedRegion(text, from)
		if !more {
			break
		}
		res.Additional++
		from = e
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(res.Region), &raw); err != nil {
		res.Status = ParseInvalidJSON
		res.Err = errors.Wrap(err, "decode tool call")
		return res
	}

	var name string
	rawName, hasName := raw["name"]
	if hasName {
		if err := json.Unmarshal(rawName, &name); err != nil {
			hasName = false
		}
	}
	rawParams, hasParams := raw["parameters"]
	var params ToolArgumentValues
	if hasParams {
		if bytes.Equal(bytes.TrimSpace(rawParams), []byte("null")) || json.Unmarshal(rawParams, &params) != nil {
			hasParams = false
		}
	}
	if !hasName || name == "" || !hasParams {
		res.Status = ParseMissingFields
		res.Err = errors.New(`tool call needs a string "name" and an object "parameters"`)
		return res
	}

	res.Status = ParseFound
	res.Invocation = NewToolInvocation(ToolName(name), params)
	return res
}

// FindBalancedRegion returns the byte range of the first balanced {...}
// region at or after from. Braces inside JSON string literals (including
// escaped quotes) do not count toward nesting. An opening brace that never
// closes is skipped and scanning resumes just after it.
func FindBalancedRegion(text string, from int) (start, end int, ok bool) {
	for i := from; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if e, closed := matchBrace(text, i); closed {
			return i, e, true
		}
	}
	return 0, 0, false
}

// matchBrace scans from the '{' at open and returns the offset just past its
// matching '}'.
func matchBrace(text string, open int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
