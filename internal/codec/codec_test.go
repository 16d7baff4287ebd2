package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct {
	Items []item `json:"items" yaml:"items"`
}

type item struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestCodecs(t *testing.T) {
	in := doc{Items: []item{{Name: "RTX 3080", Count: 2}, {Name: "RX 6800", Count: 1}}}

	for _, c := range []Codec{JSONCodec{}, YAMLCodec{}} {
		t.Run(c.Ext(), func(t *testing.T) {
			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out doc
			require.NoError(t, c.Unmarshal(data, &out))
			require.Equal(t, in, out)
		})
	}
}

func TestYAML_Format(t *testing.T) {
	data, err := YAMLCodec{}.Marshal(doc{Items: []item{{Name: "a", Count: 1}}})
	require.NoError(t, err)
	require.Equal(t, "items:\n  - name: a\n    count: 1\n", string(data))
}

func TestByName(t *testing.T) {
	c, err := ByName("yml")
	require.NoError(t, err)
	require.Equal(t, "yaml", c.Ext())

	c, err = ByName("")
	require.NoError(t, err)
	require.Equal(t, "json", c.Ext())

	_, err = ByName("toml")
	require.Error(t, err)
}
