package model

import (
	"encoding/json"
	"fmt"
)

// Tristate is an optional boolean that distinguishes "not provided" from false.
type Tristate uint8

const (
	Unset Tristate = iota
	True
	False
)

// TristateOf converts a plain bool.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// IsSet reports whether a value was provided.
func (t Tristate) IsSet() bool { return t != Unset }

// Bool returns the value and whether it was provided.
func (t Tristate) Bool() (value, ok bool) {
	return t == True, t != Unset
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unset"
	}
}

// MarshalJSON encodes Unset as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("tristate: %w", err)
	}
	if b == nil {
		*t = Unset
		return nil
	}
	*t = TristateOf(*b)
	return nil
}
