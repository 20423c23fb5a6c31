package index

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hupe1980/coarsesearch/geom"
)

// ErrUnknownMethod is returned by ParseMethod for unrecognised names.
var ErrUnknownMethod = errors.New("unknown search method")

// Method selects the index strategy of a search.
type Method int

// Constants representing the supported index strategies.
const (
	KDTree Method = iota
	Linear
)

// String returns a string representation of the Method.
func (m Method) String() string {
	switch m {
	case KDTree:
		return "KDTREE"
	case Linear:
		return "LINEAR"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseMethod parses a method name case-insensitively.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KDTREE", "KD-TREE", "KD_TREE":
		return KDTree, nil
	case "LINEAR", "FLAT":
		return Linear, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if m != KDTree && m != Linear {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Index answers box overlap queries over a fixed set of boxes.
type Index interface {
	// Name identifies the implementation in logs.
	Name() string

	// Len returns the number of indexed boxes.
	Len() int

	// Bounds returns the union of all indexed boxes (geom.EmptyBox when empty).
	Bounds() geom.Box

	// Query yields the position of every indexed box overlapping q.
	// Each position is yielded at most once; order is unspecified.
	Query(q geom.Box) iter.Seq[int]
}
