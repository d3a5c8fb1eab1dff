package nbt

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMalformed reports input that does not follow the wire format:
	// truncated data, invalid modified UTF-8, a non-empty list declaring
	// End as its element type, or a negative length.
	ErrMalformed = errors.New("malformed tag data")

	// ErrDepthExceeded reports containers nested deeper than MaxDepth.
	ErrDepthExceeded = errors.New("tag nesting too deep")

	// ErrNotCompound reports a document whose root is not a compound.
	ErrNotCompound = errors.New("root tag must be an unnamed compound")

	// ErrStringTooLong reports a string whose modified UTF-8 encoding
	// exceeds 65535 bytes.
	ErrStringTooLong = errors.New("string too long to encode")

	// ErrUnsupportedOperation reports a mutation that would break a
	// container invariant, such as adding a tag of the wrong type to a
	// list or storing an End tag.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrIndexOutOfRange reports an index outside a list or array.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// InvalidTypeError is returned when a type id outside 0..12 is met at a
// type dispatch site.
type InvalidTypeError struct {
	ID int
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid tag id %d", e.ID)
}

// Is makes an InvalidTypeError match ErrMalformed.
func (e *InvalidTypeError) Is(target error) bool {
	return target == ErrMalformed
}

// readErr classifies a stream read failure. Running out of input is
// malformed data; anything else is passed through.
func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrMalformed, io.ErrUnexpectedEOF)
	}
	return err
}

func depthErr(depth int) error {
	return fmt.Errorf("%w: depth %d reaches limit %d", ErrDepthExceeded, depth, MaxDepth)
}

func indexErr(i, n int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, n)
}
