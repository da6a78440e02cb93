package db

// Script is a Lua script run with EVALSHA (falling back to EVAL).
// Scripts must return a two-element array {integer code, string value}.
type Script struct {
	Name string
	Body string
}

// NewScript declares a named script.
func NewScript(name, body string) *Script {
	return &Script{Name: name, Body: body}
}

// ScriptReply is the decoded {code, value} pair returned by a script.
type ScriptReply struct {
	Code  int64
	Value string
}
