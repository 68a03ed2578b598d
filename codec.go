package redisq

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Codec converts a Task to and from its transport payload. A Codec must be
// a pure, stateless round-trip: Unmarshal(Marshal(t)) == t for every task
// whose arguments are expressible in the codec's value subset.
type Codec interface {
	Marshal(task Task) ([]byte, error)
	Unmarshal(payload []byte) (Task, error)
}

var _ Codec = jsonCodec{}

// jsonCodec is the default Codec. Payloads are JSON objects carrying the
// "fn", "args" and "kwargs" fields. Arguments are limited to the JSON
// value subset: numbers decode as float64 and kwargs keys are strings.
type jsonCodec struct{}

// Marshal serializes the task to bytes.
func (jsonCodec) Marshal(task Task) ([]byte, error) {
	if task.Fn == "" {
		return nil, errors.Wrap(ErrEncode, "task has no function identifier")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, errors.Wrapf(ErrEncode, "marshal task %s: %s", task.Fn, err)
	}
	return data, nil
}

// Unmarshal reverses the bytes to a task. Payloads with unknown top-level
// fields come from a newer encoding and are rejected with ErrDecode rather
// than partially read.
func (jsonCodec) Unmarshal(payload []byte) (Task, error) {
	var task Task
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&task); err != nil {
		return Task{}, errors.Wrapf(ErrDecode, "unmarshal task: %s", err)
	}
	if task.Fn == "" {
		return Task{}, errors.Wrap(ErrDecode, "payload has no function identifier")
	}
	return task, nil
}
