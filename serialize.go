package gotpl

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/moyanj/gotpl/errors"
)

// Serialize converts an arbitrary host value into compact JSON text. Any
// value encoding to standard JSON grammar is accepted, including types
// implementing json.Marshaler. HTML escaping is disabled: the escape policy
// belongs to the engine's EscapeHTML flag, not to the serializer.
//
// Serialization runs strictly before any boundary crossing, so a failure here
// never requires foreign cleanup.
func Serialize(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", errors.Serialization(err)
	}
	// Encoder terminates each value with a newline.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// containsNULEscape reports whether JSON text encodes a NUL byte as the
// escape sequence backslash-u0000. The encoder escapes control characters, so
// an interior NUL in a data value surfaces as that sequence rather than a raw
// byte. A "u0000" preceded by an even run of backslashes is literal text, not
// an escape.
func containsNULEscape(s string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], "u0000")
		if j < 0 {
			return false
		}
		j += i
		backslashes := 0
		for k := j - 1; k >= 0 && s[k] == '\\'; k-- {
			backslashes++
		}
		if backslashes%2 == 1 {
			return true
		}
		i = j + 1
	}
}
