// Package ticket loads the work item that seeds a chat session.
package ticket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"
)

// Ticket is a work item with a title and a body. Any other keys in the
// source document are kept in Extra.
type Ticket struct {
	Title string
	Body  string
	Extra map[string]json.RawMessage
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and parses the ticket at path. A missing file, invalid JSON,
// or a missing or non-string title/body is an error.
func Load(path string) (Ticket, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ticket{}, fmt.Errorf("read ticket: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a UTF-8 JSON ticket document.
func Parse(data []byte) (Ticket, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return Ticket{}, fmt.Errorf("not valid UTF-8")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Ticket{}, fmt.Errorf("parse JSON: %w", err)
	}
	if fields == nil {
		return Ticket{}, fmt.Errorf("ticket must be a JSON object")
	}

	title, err := stringField(fields, "title")
	if err != nil {
		return Ticket{}, err
	}
	body, err := stringField(fields, "body")
	if err != nil {
		return Ticket{}, err
	}

	delete(fields, "title")
	delete(fields, "body")
	return Ticket{Title: title, Body: body, Extra: fields}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("field %q must be a string: %w", key, err)
	}
	if value == nil {
		return "", fmt.Errorf("field %q must be a string, got null", key)
	}
	return *value, nil
}

// Message formats the ticket as the opening chat message.
func (t Ticket) Message() string {
	return fmt.Sprintf("Title: %s\nBody: %s", t.Title, t.Body)
}
