package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Script is a self-contained function shipped into a page. Source must be a
// JavaScript function expression taking (document, args); it sees nothing of
// the host except Args, which is JSON-encoded into the call.
type Script struct {
	Name   string
	Source string
	Args   any
}

// Expression renders the script as a single evaluable call expression.
func (s Script) Expression() (string, error) {
	src := strings.TrimSpace(s.Source)
	if src == "" {
		return "", fmt.Errorf("script %q: empty source", s.Name)
	}

	args := []byte("null")
	if s.Args != nil {
		encoded, err := json.Marshal(s.Args)
		if err != nil {
			return "", fmt.Errorf("script %q: encode args: %w", s.Name, err)
		}
		args = encoded
	}

	return fmt.Sprintf("(%s)(document, %s)", src, args), nil
}

// decodeResult unmarshals the raw JSON value returned by the page into out.
// A nil out discards the value.
func decodeResult(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		return fmt.Errorf("empty result")
	}
	return json.Unmarshal(raw, out)
}
