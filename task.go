package redisq

// Args is the ordered positional argument list of a task invocation.
type Args = []interface{}

// Kwargs is the named argument mapping of a task invocation.
type Kwargs = map[string]interface{}

// Task is one invocation request: the identifier of a registered function
// plus the arguments it should be invoked with. A Task is built once at
// call time, serialized immediately, and never mutated afterwards.
type Task struct {
	Fn     string `json:"fn"`
	Args   Args   `json:"args"`
	Kwargs Kwargs `json:"kwargs,omitempty"`
}
