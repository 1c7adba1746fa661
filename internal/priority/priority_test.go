package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/goap-sim/internal/facts"
)

func TestRule_NightDependentPriority(t *testing.T) {
	r, err := Compile(`"IsNight" in world ? 20 : 2`)
	require.NoError(t, err)

	day, err := r.Eval(facts.State{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, day)

	night, err := r.Eval(facts.State{"IsNight": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, night)
}

func TestRule_Beliefs(t *testing.T) {
	r := MustCompile(`night ? 1 : (beliefs["HasFood"] >= 3 ? 12 : 4)`)

	v, err := r.Eval(nil, facts.State{"HasFood": 3})
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	v, err = r.Eval(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, v, "missing facts read as zero")

	v, err = r.Eval(facts.State{"IsNight": 1}, facts.State{"HasFood": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"syntax", `world[`},
		{"non int", `"IsNight" in world`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.source)
			assert.Error(t, err)
		})
	}

	assert.Panics(t, func() { MustCompile("") })
}
