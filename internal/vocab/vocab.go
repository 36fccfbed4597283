// Package vocab canonicalizes the controlled vocabularies used in titles
// (tags) and licenses (use cases). Values outside the fixed tables are kept
// as custom values carrying a "custom:" prefix.
package vocab

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CustomPrefix marks a value that is not part of a fixed vocabulary.
const CustomPrefix = "custom:"

// canonicalize trims raw and looks it up in known. The returned value is
// either the known token or the custom-prefixed form.
func canonicalize(raw string, known map[string]struct{}) (value string, custom bool) {
	v := strings.TrimSpace(raw)
	if _, ok := known[v]; ok {
		return v, false
	}
	if strings.HasPrefix(v, CustomPrefix) {
		return v, true
	}
	return CustomPrefix + v, true
}

func tokenSet(tokens []string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func unmarshalString(data []byte, kind string) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%s must be a JSON string: %w", kind, err)
	}
	return s, nil
}
