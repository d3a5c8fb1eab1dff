package nbtio

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the envelope around an encoded document.
type Compression int

const (
	// Auto detects the envelope when reading and writes gzip, the
	// conventional envelope for files.
	Auto Compression = iota
	None
	Gzip
	Zlib
	LZ4
)

var compressionNames = map[Compression]string{
	Auto: "auto",
	None: "none",
	Gzip: "gzip",
	Zlib: "zlib",
	LZ4:  "lz4",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

// ParseCompression maps a name such as "gzip" to its Compression. Matching
// ignores case; the empty string means Auto.
func ParseCompression(name string) (Compression, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Auto, nil
	}
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}
	return Auto, fmt.Errorf("unknown compression %q", name)
}

var (
	gzipMagic = []byte{0x1F, 0x8B}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// DetectCompression sniffs the envelope of data from its leading bytes.
// Anything unrecognized is reported as None.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	case len(data) >= 2 && data[0]&0x0F == 8 && data[0]>>4 <= 7 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0:
		// zlib CMF/FLG header with a window of at most 32K. A raw String
		// root can still match; reading under Auto falls back to raw then.
		return Zlib
	}
	return None
}

// resolve settles Auto against the data at hand.
func (c Compression) resolve(data []byte) Compression {
	if c == Auto {
		return DetectCompression(data)
	}
	return c
}

func decompressor(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zlib:
		return zlib.NewReader(r)
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported compression %s", c)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func compressor(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Auto, Gzip:
		return gzip.NewWriter(w), nil
	case Zlib:
		return zlib.NewWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unsupported compression %s", c)
}
