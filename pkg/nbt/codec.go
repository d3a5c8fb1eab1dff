package nbt

import (
	"bytes"
	"fmt"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/internal/persist"
)

// readListHeader reads the element type and count of a list and checks
// them against the remaining input.
func readListHeader(s *kaitai.Stream) (TagType, int, error) {
	id, err := s.ReadU1()
	if err != nil {
		return nil, 0, readErr(err)
	}
	elem := TypeOf(int(id))
	if isInvalid(elem) {
		return nil, 0, &InvalidTypeError{ID: int(id)}
	}
	n, err := fixed(s, 4, s.ReadS4be)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case n < 0:
		return nil, 0, fmt.Errorf("%w: negative list length %d", ErrMalformed, n)
	case n > 0 && elem.ID() == TypeEnd:
		return nil, 0, fmt.Errorf("%w: non-empty list of End", ErrMalformed)
	}
	// every element other than End takes at least one byte
	if err := need(s, int64(n)); err != nil {
		return nil, 0, err
	}
	return elem, int(n), nil
}

func loadList(s *kaitai.Stream, depth int) (Tag, error) {
	if depth >= MaxDepth {
		return nil, depthErr(depth)
	}
	elem, n, err := readListHeader(s)
	if err != nil {
		return nil, err
	}
	tags := make([]Tag, n)
	for i := range tags {
		if tags[i], err = elem.Load(s, depth+1); err != nil {
			return nil, err
		}
	}
	return newImmutableList(persist.VectorOf(tags...), elem.ID()), nil
}

func loadCompound(s *kaitai.Stream, depth int) (Tag, error) {
	if depth >= MaxDepth {
		return nil, depthErr(depth)
	}
	var m persist.Map[Tag]
	for {
		id, err := s.ReadU1()
		if err != nil {
			return nil, readErr(err)
		}
		if TypeID(id) == TypeEnd {
			return newImmutableCompound(m), nil
		}
		t := TypeOf(int(id))
		if isInvalid(t) {
			return nil, &InvalidTypeError{ID: int(id)}
		}
		name, err := readString(s)
		if err != nil {
			return nil, err
		}
		value, err := t.Load(s, depth+1)
		if err != nil {
			return nil, err
		}
		m = m.With(name, value)
	}
}

func skipList(s *kaitai.Stream, depth int) error {
	if depth >= MaxDepth {
		return depthErr(depth)
	}
	elem, n, err := readListHeader(s)
	if err != nil {
		return err
	}
	return elem.skipAt(s, n, depth+1)
}

func skipCompound(s *kaitai.Stream, depth int) error {
	if depth >= MaxDepth {
		return depthErr(depth)
	}
	return skipEntries(s, depth)
}

// skipEntries skips (type, name, value) triples up to and including the
// End byte closing the compound at depth.
func skipEntries(s *kaitai.Stream, depth int) error {
	for {
		id, err := s.ReadU1()
		if err != nil {
			return readErr(err)
		}
		if TypeID(id) == TypeEnd {
			return nil
		}
		t := TypeOf(int(id))
		if isInvalid(t) {
			return &InvalidTypeError{ID: int(id)}
		}
		if err := skipString(s); err != nil {
			return err
		}
		if err := t.skipAt(s, 1, depth+1); err != nil {
			return err
		}
	}
}

// ReadNamed reads a root (type, name, value) triple. A bare End byte
// yields a NamedTag holding End with an empty name.
func ReadNamed(s *kaitai.Stream) (NamedTag, error) {
	id, err := s.ReadU1()
	if err != nil {
		return NamedTag{}, fmt.Errorf("reading root type: %w", readErr(err))
	}
	if TypeID(id) == TypeEnd {
		return NamedTag{Tag: End}, nil
	}
	t := TypeOf(int(id))
	if isInvalid(t) {
		return NamedTag{}, fmt.Errorf("reading root type: %w", &InvalidTypeError{ID: int(id)})
	}
	name, err := readString(s)
	if err != nil {
		return NamedTag{}, fmt.Errorf("reading root name: %w", err)
	}
	tag, err := t.Load(s, 0)
	if err != nil {
		return NamedTag{}, fmt.Errorf("reading %s root: %w", t.PrettyName(), err)
	}
	return NamedTag{Name: name, Tag: tag}, nil
}

// ReadRoot reads a root tag and discards its name.
func ReadRoot(s *kaitai.Stream) (Tag, error) {
	named, err := ReadNamed(s)
	if err != nil {
		return nil, err
	}
	return named.Tag, nil
}

// ReadCompound reads a root tag that must be a compound.
func ReadCompound(s *kaitai.Stream) (Compound, error) {
	t, err := ReadRoot(s)
	if err != nil {
		return nil, err
	}
	c, ok := t.(Compound)
	if !ok {
		return nil, fmt.Errorf("%w: found %s", ErrNotCompound, t.Type().PrettyName())
	}
	return c, nil
}

// WriteNamed writes t as a root triple under name. End is written as a
// single End byte.
func WriteNamed(w *kaitai.Writer, name string, t Tag) error {
	if err := w.WriteU1(uint8(t.ID())); err != nil {
		return err
	}
	if t.ID() == TypeEnd {
		return nil
	}
	if err := writeString(w, name); err != nil {
		return fmt.Errorf("writing root name: %w", err)
	}
	if err := t.Write(w); err != nil {
		return fmt.Errorf("writing %s root: %w", t.Type().PrettyName(), err)
	}
	return nil
}

// Marshal encodes t as a root named "".
func Marshal(t Tag) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteNamed(kaitai.NewWriter(&buf), "", t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a root tag from data.
func Unmarshal(data []byte) (Tag, error) {
	return ReadRoot(kaitai.NewStream(bytes.NewReader(data)))
}
