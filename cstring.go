package gotpl

import (
	"fmt"
	"strings"

	"github.com/moyanj/gotpl/errors"
)

// MarshalCString converts s into a NUL-terminated buffer suitable for
// crossing the boundary. The boundary representation uses NUL termination, so
// a string containing an interior NUL byte would silently truncate; it is
// rejected with an invalid-input error instead. An empty string is valid and
// encodes as just the terminator.
func MarshalCString(s string) ([]byte, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, errors.InvalidInput(errors.PhaseMarshal,
			fmt.Sprintf("string contains NUL byte at index %d", i))
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf, nil
}
