// Package nbtio reads and writes whole tag documents: a named root tag,
// usually a compound, optionally wrapped in a compression envelope.
//
// # Quick Start
//
// The package-level functions use a shared default codec:
//
//	root, err := nbtio.ReadFile("level.dat")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(root.GetCompound("Data").GetString("LevelName"))
//
// # Compression
//
// Reading detects gzip, zlib and LZ4 frame envelopes from their magic
// bytes unless WithCompression fixes one. Writing uses gzip unless told
// otherwise:
//
//	data, err := nbtio.Encode(root, nbtio.WithCompression(nbtio.None))
//
// # Streaming and paths
//
// Codec.Parse feeds a document to an nbt.StreamingVisitor, and
// Codec.Extract decodes only the value a tagpath expression addresses:
//
//	codec := nbtio.NewCodec(nbtio.WithLogger(logger))
//	name, ok, err := codec.Extract(ctx, f, "Data.LevelName")
//
// # JSON Support
//
// ToJSON renders a document through nbt.ToPlain; FromJSON goes the other
// way through nbt.FromPlain. JSON carries no tag kinds, so integers come
// back as Int or Long and other numbers as Double.
//
// # Configuration Options
//
//   - WithCompression(Compression): envelope (default Auto)
//   - WithRootName(string): root name written (default "")
//   - WithMaxSize(int64): size ceiling on input and decompressed output (default DefaultMaxSize, 0 disables)
//   - WithLogger(*slog.Logger): custom logging
//   - WithDebugMode(bool): tag log records with debug=true
package nbtio
