package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecodeJSON parses a model payload into a generic value. Markdown code fences
// are tolerated; anything else that is not a single JSON value is an error.
func DecodeJSON(text string) (any, error) {
	payload := stripCodeFence(text)
	if payload == "" {
		return nil, errors.New("empty payload")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse json: %w (payload: %s)", err, snippet(payload))
	}
	if dec.More() {
		return nil, fmt.Errorf("parse json: trailing data (payload: %s)", snippet(payload))
	}
	return out, nil
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(s string) string {
	const limit = 160
	clean := strings.Join(strings.Fields(s), " ")
	var buf bytes.Buffer
	for i, r := range clean {
		if i >= limit {
			buf.WriteString("...")
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
