package set

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTarget_JSON(t *testing.T) {
	type slotted struct {
		Slot Target[int] `json:"slot"`
	}

	for _, tc := range []struct {
		in   Target[int]
		want string
	}{
		{All[int](), `{"slot":{"all":true}}`},
		{Specific(0), `{"slot":{"key":0}}`},
		{Specific(3), `{"slot":{"key":3}}`},
	} {
		data, err := json.Marshal(slotted{Slot: tc.in})
		require.NoError(t, err)
		require.JSONEq(t, tc.want, string(data))

		var back slotted
		require.NoError(t, json.Unmarshal(data, &back))
		require.Equal(t, tc.in, back.Slot)
	}

	var bad slotted
	require.ErrorIs(t, json.Unmarshal([]byte(`{"slot":{}}`), &bad), errTargetShape)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"slot":{"all":true,"key":1}}`), &bad), errTargetShape)
}

func TestTarget_YAML(t *testing.T) {
	type slotted struct {
		Slot Target[int] `yaml:"slot"`
	}

	for _, in := range []Target[int]{All[int](), Specific(0), Specific(2)} {
		data, err := yaml.Marshal(slotted{Slot: in})
		require.NoError(t, err)

		var back slotted
		require.NoError(t, yaml.Unmarshal(data, &back))
		require.Equal(t, in, back.Slot)
	}
}
