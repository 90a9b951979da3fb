package types

import "github.com/DmitriyVTitov/size"

// Sizable is the interface implemented by types that support to compute memory size.
type Sizable interface {
	Size() int // memory size in bytes
}

// SizeOf returns the memory size in bytes of the given value, via the Sizable
// interface if implemented, otherwise computed by reflection.
func SizeOf(value any) int {
	if sizable, ok := value.(Sizable); ok {
		return sizable.Size()
	}

	return size.Of(value)
}
