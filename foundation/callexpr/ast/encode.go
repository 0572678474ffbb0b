// File: encode.go
// Title: Command Tree Encoding
// Description: Converts command trees to and from generic maps. The map
//              form backs the JSON encoding and is what the YAML renderer
//              and the gRPC transport carry.
// Author: msto63
// Version: v0.2.0
// Created: 2026-10-19
// Modified: 2026-10-19
//
// Change History:
// - 2026-10-19 v0.2.0: ToMap/FromMap and JSON support
// - 2026-10-19 v0.2.1: Depth cap for the encoded form

package ast

import (
	"encoding/json"
	"fmt"
)

// Map keys of the generic form
const (
	KeyName    = "name"
	KeyArgs    = "args"
	KeyLiteral = "literal"
	KeyQuoted  = "quoted"
	KeyCommand = "command"
)

// MaxEncodableDepth is the deepest tree the JSON and structpb encodings
// carry. Each command costs three JSON levels and up to eight protobuf
// messages; encoding/json and protobuf both stop at 10000.
const MaxEncodableDepth = 512

// ErrTooDeep is returned by MarshalJSON for trees deeper than
// MaxEncodableDepth
var ErrTooDeep = fmt.Errorf("command tree deeper than %d levels cannot be encoded", MaxEncodableDepth)

// ToMap returns the generic form of the tree:
//
//	{"name": "Foo", "args": [{"literal": "1", "quoted": false}, {"command": {...}}]}
//
// Only map[string]interface{}, []interface{}, string and bool values are used.
func (c *Command) ToMap() map[string]interface{} {
	args := make([]interface{}, 0, len(c.Args))
	for _, a := range c.Args {
		switch v := a.(type) {
		case Literal:
			args = append(args, map[string]interface{}{KeyLiteral: v.Value, KeyQuoted: v.Quoted})
		case Nested:
			args = append(args, map[string]interface{}{KeyCommand: v.Command.ToMap()})
		}
	}
	return map[string]interface{}{
		KeyName: c.Name,
		KeyArgs: args,
	}
}

// FromMap rebuilds a tree from its generic form
func FromMap(m map[string]interface{}) (*Command, error) {
	name, ok := m[KeyName].(string)
	if !ok {
		return nil, fmt.Errorf("command: missing %q", KeyName)
	}
	cmd := &Command{Name: name}

	raw, _ := m[KeyArgs].([]interface{})
	for i, item := range raw {
		am, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("command %s: argument %d is not an object", name, i)
		}
		if sub, ok := am[KeyCommand].(map[string]interface{}); ok {
			child, err := FromMap(sub)
			if err != nil {
				return nil, err
			}
			cmd.Args = append(cmd.Args, Nested{Command: child})
			continue
		}
		value, ok := am[KeyLiteral].(string)
		if !ok {
			return nil, fmt.Errorf("command %s: argument %d has neither %q nor %q", name, i, KeyLiteral, KeyCommand)
		}
		quoted, _ := am[KeyQuoted].(bool)
		cmd.Args = append(cmd.Args, Literal{Value: value, Quoted: quoted})
	}
	return cmd, nil
}

// MarshalJSON encodes the generic form
func (c *Command) MarshalJSON() ([]byte, error) {
	if c.Depth() > MaxEncodableDepth {
		return nil, ErrTooDeep
	}
	return json.Marshal(c.ToMap())
}

// UnmarshalJSON decodes the generic form
func (c *Command) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	decoded, err := FromMap(m)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}
