package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamps_InitKeepsSourceTimes(t *testing.T) {
	src := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ts := Timestamps{CreatedAt: src}
	ts.InitTimestamps(now)
	assert.Equal(t, src, ts.CreatedAt)
	assert.Equal(t, src, ts.UpdatedAt)

	var fresh Timestamps
	fresh.InitTimestamps(now)
	assert.Equal(t, now, fresh.CreatedAt)
	assert.Equal(t, now, fresh.UpdatedAt)
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, ParseTags(""))
	assert.Equal(t, []string{"go", "notes"}, ParseTags("go, ,notes,"))

	c := Collection{Tags: []string{"a", "b"}}
	assert.Equal(t, "a,b", c.TagString())
}

func TestCollectionDetail_ValueRoundTrip(t *testing.T) {
	values := []string{
		`"plain text"`,
		`{"nested":{"list":[1,2.5,"x",null,true]}}`,
		`[1,2,3]`,
		`42`,
		`null`,
	}

	for _, raw := range values {
		d := CollectionDetail{Key: "k", Value: json.RawMessage(raw)}
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var back CollectionDetail
		require.NoError(t, json.Unmarshal(data, &back))
		assert.JSONEq(t, raw, string(back.Value))
	}
}

func TestCollectionDetail_StringValue(t *testing.T) {
	assert.Equal(t, "hello", (&CollectionDetail{Value: json.RawMessage(`"hello"`)}).StringValue())
	assert.Equal(t, `{"a":1}`, (&CollectionDetail{Value: json.RawMessage(`{"a":1}`)}).StringValue())
	assert.Empty(t, (&CollectionDetail{}).StringValue())
}

func TestDirection_Modes(t *testing.T) {
	d, err := ParseDirection("to-standalone")
	require.NoError(t, err)
	assert.Equal(t, ModeNormal, d.SourceMode())
	assert.Equal(t, ModeStandalone, d.TargetMode())

	assert.Equal(t, ModeStandalone, ToNormal.SourceMode())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	_, err = ParseMode("offline")
	assert.Error(t, err)
}

func TestAssetKind_Valid(t *testing.T) {
	assert.True(t, AssetPost.Valid())
	assert.True(t, AssetComment.Valid())
	assert.False(t, AssetKind("user").Valid())
}
