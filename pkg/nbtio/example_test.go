package nbtio_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
	"github.com/twinfer/nbt-plugin/pkg/nbtio"
)

// Example shows an encode and decode round trip through gzip
func Example() {
	root := nbt.NewCompoundBuilder().
		PutString("name", "test").
		PutInt("value", 42).
		BuildImmutable()

	data, err := nbtio.Encode(root, nbtio.WithCompression(nbtio.Gzip))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("envelope:", nbtio.DetectCompression(data))

	named, err := nbtio.Decode(data)
	if err != nil {
		log.Fatal(err)
	}
	c := named.Tag.(nbt.Compound)
	fmt.Println(c.GetString("name"), c.GetInt("value"), c.GetIntOr("missing", -1))
	// Output:
	// envelope: gzip
	// test 42 -1
}

// Example_extract pulls one value out of a document without decoding the rest
func Example_extract() {
	root := nbt.NewCompoundBuilder().
		PutCompound("Data", func(b *nbt.CompoundBuilder) {
			b.PutString("LevelName", "world").PutLong("Time", 24000)
		}).
		BuildImmutable()

	codec := nbtio.NewCodec(nbtio.WithCompression(nbtio.Zlib))
	ctx := context.Background()

	data, err := codec.Encode(ctx, root)
	if err != nil {
		log.Fatal(err)
	}

	t, ok, err := codec.Extract(ctx, bytes.NewReader(data), "Data.Time")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ok, t.(*nbt.LongTag).Value())
	// Output: true 24000
}
