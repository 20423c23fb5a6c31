package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
	}{
		{"KDTREE", KDTree},
		{"kdtree", KDTree},
		{" kd-tree ", KDTree},
		{"LINEAR", Linear},
		{"flat", Linear},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMethod("octree")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestMethodString(t *testing.T) {
	assert.Equal(t, "KDTREE", KDTree.String())
	assert.Equal(t, "LINEAR", Linear.String())
	assert.Equal(t, "Unknown(5)", Method(5).String())
}

func TestMethodText(t *testing.T) {
	var cfg struct {
		Method Method `yaml:"method"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("method: linear\n"), &cfg))
	assert.Equal(t, Linear, cfg.Method)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Equal(t, "method: LINEAR\n", string(out))

	_, err = Method(42).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
