package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON reports that a model reply contained no decodable JSON object.
var ErrNoJSON = errors.New("no json object in model output")

// ExtractFirstJSON pulls the first top-level JSON object out of free-form
// model output. Models wrap answers in prose or code fences often enough that
// a plain Unmarshal of the whole reply is not reliable.
func ExtractFirstJSON(raw string) (map[string]any, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out map[string]any
				if err := json.Unmarshal([]byte(raw[start:i+1]), &out); err != nil {
					return nil, ErrNoJSON
				}
				return out, nil
			}
		}
	}
	return nil, ErrNoJSON
}
