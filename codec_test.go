package redisq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_roundTrip(t *testing.T) {
	cases := []struct {
		name string
		task Task
	}{
		{
			"positional args only",
			Task{Fn: "mail.send", Args: Args{"bob@example.com", float64(42), true}},
		},
		{
			"no args",
			Task{Fn: "cache.warm"},
		},
		{
			"kwargs",
			Task{
				Fn:     "report.render",
				Args:   Args{"monthly"},
				Kwargs: Kwargs{"format": "pdf", "pages": float64(3)},
			},
		},
		{
			"nested values",
			Task{
				Fn:   "batch.import",
				Args: Args{[]interface{}{float64(1), float64(2)}, map[string]interface{}{"dry_run": false}},
			},
		},
		{
			"null argument",
			Task{Fn: "noop", Args: Args{nil}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload, err := jsonCodec{}.Marshal(c.task)
			require.NoError(t, err)
			got, err := jsonCodec{}.Unmarshal(payload)
			require.NoError(t, err)
			assert.Equal(t, c.task, got)
		})
	}
}

func TestJSONCodec_marshalErrors(t *testing.T) {
	_, err := jsonCodec{}.Marshal(Task{Fn: "bad.arg", Args: Args{make(chan int)}})
	assert.ErrorIs(t, err, ErrEncode)

	_, err = jsonCodec{}.Marshal(Task{Args: Args{1}})
	assert.ErrorIs(t, err, ErrEncode)
}

func TestJSONCodec_unmarshalErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "definitely not json"},
		{"wrong shape", `["fn","args"]`},
		{"unknown top-level field", `{"fn":"mail.send","args":[],"priority":9}`},
		{"missing function identifier", `{"args":[1,2]}`},
		{"empty payload", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := jsonCodec{}.Unmarshal([]byte(c.payload))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}
