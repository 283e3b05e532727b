package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command is a client request: {"cmd": "volume", "arg": "50"}. Arg may also be
// sent as a JSON number; it is kept as its decimal text.
type Command struct {
	Cmd string  `json:"cmd"`
	Arg *string `json:"arg"`
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var raw struct {
		Cmd string          `json:"cmd"`
		Arg json.RawMessage `json:"arg"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Command{Cmd: raw.Cmd}

	arg := bytes.TrimSpace(raw.Arg)
	if len(arg) == 0 || bytes.Equal(arg, []byte("null")) {
		return nil
	}
	switch arg[0] {
	case '"':
		var s string
		if err := json.Unmarshal(arg, &s); err != nil {
			return err
		}
		c.Arg = &s
	default:
		var n json.Number
		if err := json.Unmarshal(arg, &n); err != nil {
			return fmt.Errorf("arg must be a string or a number")
		}
		s := n.String()
		c.Arg = &s
	}
	return nil
}

// Response answers a Command: {"ok":true} or {"error":"..."}.
type Response struct {
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}
