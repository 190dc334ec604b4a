package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag_String(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "Monitor", Monitor.String())
	assert.Equal(t, "Review", Review.String())
	assert.Equal(t, "Flag", Flagged.String())
	assert.Equal(t, "Flag(9)", Flag(9).String())
	assert.False(t, Flag(9).Valid())
}

func TestFlag_Ordering(t *testing.T) {
	assert.Less(t, OK, Monitor)
	assert.Less(t, Monitor, Review)
	assert.Less(t, Review, Flagged)
	assert.Equal(t, Review, Monitor.Worse(Review))
	assert.Equal(t, Flagged, Flagged.Worse(OK))
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"ok", "MONITOR", " Review ", "flag"} {
		_, err := ParseFlag(s)
		assert.NoError(t, err, s)
	}
	f, err := ParseFlag("flag")
	require.NoError(t, err)
	assert.Equal(t, Flagged, f)

	_, err = ParseFlag("Error")
	assert.Error(t, err)
}

func TestFlag_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Flag{"a": Monitor})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"Monitor"}`, string(data))

	var f Flag
	require.NoError(t, json.Unmarshal([]byte(`"Review"`), &f))
	assert.Equal(t, Review, f)

	assert.Error(t, json.Unmarshal([]byte(`2`), &f))
	assert.Error(t, json.Unmarshal([]byte(`"Critical"`), &f))

	_, err = json.Marshal(Flag(9))
	assert.Error(t, err)
}
