package nbt

import (
	"fmt"
	"math"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/internal/mutf8"
)

// StringTag holds text. On the wire it is modified UTF-8 behind a two
// byte length prefix.
type StringTag struct{ value string }

// EmptyString is the shared tag for "".
var EmptyString = &StringTag{}

// String returns the tag for v.
func String(v string) *StringTag {
	if v == "" {
		return EmptyString
	}
	return &StringTag{value: v}
}

func (t *StringTag) Value() string                { return t.value }
func (*StringTag) ID() TypeID                     { return TypeString }
func (*StringTag) Type() TagType                  { return registry[TypeString] }
func (t *StringTag) Write(w *kaitai.Writer) error { return writeString(w, t.value) }
func (t *StringTag) Copy() Tag                    { return t }

func (t *StringTag) Equal(other Tag) bool {
	o, ok := other.(*StringTag)
	return ok && o.value == t.value
}

func readString(s *kaitai.Stream) (string, error) {
	n, err := fixed(s, 2, s.ReadU2be)
	if err != nil {
		return "", readErr(err)
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", readErr(err)
	}
	v, err := mutf8.Decode(b)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return v, nil
}

func writeString(w *kaitai.Writer, v string) error {
	n := mutf8.EncodedLen(v)
	if n > math.MaxUint16 {
		return fmt.Errorf("%w: %d encoded bytes", ErrStringTooLong, n)
	}
	if err := w.WriteU2be(uint16(n)); err != nil {
		return err
	}
	return w.WriteBytes(mutf8.Encode(v))
}

func skipString(s *kaitai.Stream) error {
	n, err := fixed(s, 2, s.ReadU2be)
	if err != nil {
		return readErr(err)
	}
	return seek(s, int64(n))
}

func loadString(s *kaitai.Stream, _ int) (Tag, error) {
	v, err := readString(s)
	if err != nil {
		return nil, err
	}
	return String(v), nil
}

func parseString(s *kaitai.Stream, v StreamingVisitor, _ int) (ValueResult, error) {
	x, err := readString(s)
	if err != nil {
		return Halt, err
	}
	return v.VisitString(x), nil
}
