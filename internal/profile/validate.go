package profile

import (
	"errors"
	"fmt"
)

// MaxNameLen bounds profile names; they become directory names.
const MaxNameLen = 64

// ErrInvalidName is wrapped by every ValidateName failure.
var ErrInvalidName = errors.New("invalid profile name")

// ValidateName accepts lowercase letters, digits, '-' and '_'. The name may
// not start with '-' so it cannot be mistaken for a flag.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w %q: longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	case name[0] == '-':
		return fmt.Errorf("%w %q: starts with '-'", ErrInvalidName, name)
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; !nameByte(c) {
			return fmt.Errorf("%w %q: byte %q at %d (allowed: a-z 0-9 - _)", ErrInvalidName, name, c, i)
		}
	}
	return nil
}

func nameByte(c byte) bool {
	return 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '-' || c == '_'
}
