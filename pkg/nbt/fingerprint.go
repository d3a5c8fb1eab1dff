package nbt

import (
	"slices"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"github.com/zeebo/blake3"
)

// Fingerprint is a BLAKE3-256 digest of a tag tree.
type Fingerprint [32]byte

// FingerprintOf hashes the unnamed encoding of t (type id followed by the
// payload). Compound entries are hashed in name order, so tags that are
// Equal share a fingerprint.
func FingerprintOf(t Tag) (Fingerprint, error) {
	h := blake3.New()
	w := kaitai.NewWriter(h)
	if err := w.WriteU1(uint8(t.ID())); err != nil {
		return Fingerprint{}, err
	}
	if err := writeCanonical(w, t); err != nil {
		return Fingerprint{}, err
	}
	var fp Fingerprint
	h.Sum(fp[:0])
	return fp, nil
}

func writeCanonical(w *kaitai.Writer, t Tag) error {
	switch t := t.(type) {
	case List:
		if err := w.WriteU1(uint8(t.ElementType())); err != nil {
			return err
		}
		if err := w.WriteS4be(int32(t.Len())); err != nil {
			return err
		}
		for _, e := range t.All() {
			if err := writeCanonical(w, e); err != nil {
				return err
			}
		}
		return nil
	case Compound:
		names := t.Keys()
		slices.Sort(names)
		for _, name := range names {
			e, _ := t.Get(name)
			if err := w.WriteU1(uint8(e.ID())); err != nil {
				return err
			}
			if err := writeString(w, name); err != nil {
				return err
			}
			if err := writeCanonical(w, e); err != nil {
				return err
			}
		}
		return w.WriteU1(uint8(TypeEnd))
	default:
		return t.Write(w)
	}
}
