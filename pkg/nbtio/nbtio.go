package nbtio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
	"github.com/twinfer/nbt-plugin/pkg/tagpath"
)

// ErrTooLarge reports a document whose size, as read or once
// decompressed, exceeds the configured ceiling.
var ErrTooLarge = errors.New("document exceeds size limit")

// DefaultMaxSize is the size ceiling used unless WithMaxSize says
// otherwise.
const DefaultMaxSize = 64 << 20

// Codec reads and writes whole documents with compression handling,
// logging and a cache of compiled paths.
type Codec struct {
	pathCache  map[string]*tagpath.Path
	cacheMutex sync.RWMutex
	options    options
}

// options holds configuration for the codec
type options struct {
	compression Compression
	rootName    string
	maxSize     int64
	logger      *slog.Logger
	debugMode   bool
}

// Option is a function that configures codec options
type Option func(*options)

// WithCompression fixes the envelope instead of detecting it on read.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithRootName sets the name written for the root tag (default "").
func WithRootName(name string) Option {
	return func(o *options) {
		o.rootName = name
	}
}

// WithMaxSize caps the size of a document both as read and once
// decompressed.
func WithMaxSize(n int64) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebugMode tags every log record with debug=true
func WithDebugMode(enabled bool) Option {
	return func(o *options) {
		o.debugMode = enabled
	}
}

func defaultOptions() options {
	return options{
		compression: Auto,
		maxSize:     DefaultMaxSize,
		logger:      slog.Default(),
	}
}

var globalCodec *Codec
var globalCodecOnce sync.Once

func getGlobalCodec() *Codec {
	globalCodecOnce.Do(func() {
		globalCodec = NewCodec()
	})
	return globalCodec
}

// NewCodec creates a codec with the given options
func NewCodec(opts ...Option) *Codec {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.debugMode {
		options.logger = options.logger.With("debug", true)
	}

	return &Codec{
		pathCache: make(map[string]*tagpath.Path),
		options:   options,
	}
}

func (c *Codec) apply(opts []Option) options {
	options := c.options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Decode decodes a document held in memory
func Decode(data []byte, opts ...Option) (nbt.NamedTag, error) {
	return getGlobalCodec().Decode(context.Background(), data, opts...)
}

// DecodeWithContext decodes a document held in memory with a context
func DecodeWithContext(ctx context.Context, data []byte, opts ...Option) (nbt.NamedTag, error) {
	return getGlobalCodec().Decode(ctx, data, opts...)
}

// Encode encodes t as a document
func Encode(t nbt.Tag, opts ...Option) ([]byte, error) {
	return getGlobalCodec().Encode(context.Background(), t, opts...)
}

// EncodeWithContext encodes t as a document with a context
func EncodeWithContext(ctx context.Context, t nbt.Tag, opts ...Option) ([]byte, error) {
	return getGlobalCodec().Encode(ctx, t, opts...)
}

// ToJSON decodes a document and renders its root as JSON
func ToJSON(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalCodec().ToJSON(context.Background(), data, opts...)
}

// FromJSON encodes a JSON object as a document
func FromJSON(jsonData []byte, opts ...Option) ([]byte, error) {
	return getGlobalCodec().FromJSON(context.Background(), jsonData, opts...)
}

// ReadFile reads the compound document stored at path
func ReadFile(path string, opts ...Option) (nbt.Compound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return getGlobalCodec().Read(context.Background(), f, opts...)
}

// WriteFile writes c to path as a document
func WriteFile(path string, c nbt.Compound, opts ...Option) error {
	data, err := getGlobalCodec().Encode(context.Background(), c, opts...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// inflate strips the envelope from data. The size ceiling applies to the
// input as read and again to the decompressed output.
func (c *Codec) inflate(ctx context.Context, data []byte, o options) ([]byte, error) {
	if o.maxSize > 0 && int64(len(data)) > o.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, o.maxSize)
	}
	comp := o.compression.resolve(data)
	if comp == None {
		return data, nil
	}

	out, err := decompress(comp, data, o.maxSize)
	if err != nil {
		// a raw String root with a long name can pass the zlib sniff
		if o.compression == Auto && comp == Zlib && !errors.Is(err, ErrTooLarge) {
			o.logger.DebugContext(ctx, "zlib sniff did not hold, reading raw", "error", err)
			return data, nil
		}
		return nil, err
	}

	o.logger.DebugContext(ctx, "decompressed document",
		"compression", comp.String(),
		"compressed", len(data),
		"size", len(out))
	return out, nil
}

func decompress(comp Compression, data []byte, maxSize int64) ([]byte, error) {
	r, err := decompressor(comp, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", comp, err)
	}
	defer r.Close()

	var src io.Reader = r
	if maxSize > 0 {
		src = io.LimitReader(r, maxSize+1)
	}
	out, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", comp, err)
	}
	if maxSize > 0 && int64(len(out)) > maxSize {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, maxSize)
	}
	return out, nil
}

func (c *Codec) load(ctx context.Context, r io.Reader, o options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var src io.Reader = r
	if o.maxSize > 0 {
		src = io.LimitReader(r, o.maxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return c.inflate(ctx, data, o)
}

// Decode decodes a document held in memory
func (c *Codec) Decode(ctx context.Context, data []byte, opts ...Option) (nbt.NamedTag, error) {
	o := c.apply(opts)
	if err := ctx.Err(); err != nil {
		return nbt.NamedTag{}, err
	}
	raw, err := c.inflate(ctx, data, o)
	if err != nil {
		return nbt.NamedTag{}, err
	}
	return c.decode(ctx, raw, o)
}

// ReadNamed reads a whole document from r
func (c *Codec) ReadNamed(ctx context.Context, r io.Reader, opts ...Option) (nbt.NamedTag, error) {
	o := c.apply(opts)
	raw, err := c.load(ctx, r, o)
	if err != nil {
		return nbt.NamedTag{}, err
	}
	return c.decode(ctx, raw, o)
}

func (c *Codec) decode(ctx context.Context, raw []byte, o options) (nbt.NamedTag, error) {
	named, err := nbt.ReadNamed(kaitai.NewStream(bytes.NewReader(raw)))
	if err != nil {
		return nbt.NamedTag{}, fmt.Errorf("decoding document: %w", err)
	}
	o.logger.DebugContext(ctx, "decoded document",
		"root", named.Name,
		"type", named.Tag.Type().PrettyName())
	return named, nil
}

// Read reads a document from r whose root must be a compound
func (c *Codec) Read(ctx context.Context, r io.Reader, opts ...Option) (nbt.Compound, error) {
	named, err := c.ReadNamed(ctx, r, opts...)
	if err != nil {
		return nil, err
	}
	root, ok := named.Tag.(nbt.Compound)
	if !ok {
		return nil, fmt.Errorf("%w: found %s", nbt.ErrNotCompound, named.Tag.Type().PrettyName())
	}
	return root, nil
}

// Parse streams the document read from r through v. Cancelling ctx halts
// the parse at the next entry.
func (c *Codec) Parse(ctx context.Context, r io.Reader, v nbt.StreamingVisitor, opts ...Option) (nbt.ValueResult, error) {
	o := c.apply(opts)
	raw, err := c.load(ctx, r, o)
	if err != nil {
		return nbt.Halt, err
	}
	cv := &cancelVisitor{StreamingVisitor: v, ctx: ctx}
	res, err := nbt.ParseDocument(kaitai.NewStream(bytes.NewReader(raw)), cv)
	if err != nil {
		return nbt.Halt, fmt.Errorf("parsing document: %w", err)
	}
	if cv.err != nil {
		return nbt.Halt, cv.err
	}
	return res, nil
}

// Extract resolves path against the document read from r, decoding only
// the addressed value.
func (c *Codec) Extract(ctx context.Context, r io.Reader, path string, opts ...Option) (nbt.Tag, bool, error) {
	p, err := c.compilePath(path)
	if err != nil {
		return nil, false, err
	}
	x := tagpath.NewExtractor(p)
	if _, err := c.Parse(ctx, r, x, opts...); err != nil {
		return nil, false, err
	}
	t, ok := x.Result()
	return t, ok, nil
}

// compilePath parses a path with caching
func (c *Codec) compilePath(src string) (*tagpath.Path, error) {
	c.cacheMutex.RLock()
	cached, exists := c.pathCache[src]
	c.cacheMutex.RUnlock()
	if exists {
		return cached, nil
	}

	p, err := tagpath.Parse(src)
	if err != nil {
		return nil, err
	}

	c.cacheMutex.Lock()
	c.pathCache[src] = p
	c.cacheMutex.Unlock()
	return p, nil
}

// ClearCache clears the compiled path cache
func (c *Codec) ClearCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.pathCache = make(map[string]*tagpath.Path)
}

// WriteNamed writes t to w as a document under name
func (c *Codec) WriteNamed(ctx context.Context, w io.Writer, name string, t nbt.Tag, opts ...Option) error {
	o := c.apply(opts)
	if err := ctx.Err(); err != nil {
		return err
	}

	zw, err := compressor(o.compression, w)
	if err != nil {
		return err
	}
	if err := nbt.WriteNamed(kaitai.NewWriter(zw), name, t); err != nil {
		zw.Close()
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing %s stream: %w", o.compression, err)
	}

	o.logger.DebugContext(ctx, "encoded document",
		"root", name,
		"type", t.Type().PrettyName(),
		"compression", o.compression.String())
	return nil
}

// Write writes root to w as a document named by WithRootName
func (c *Codec) Write(ctx context.Context, w io.Writer, root nbt.Compound, opts ...Option) error {
	return c.WriteNamed(ctx, w, c.apply(opts).rootName, root, opts...)
}

// Encode encodes t as a document named by WithRootName
func (c *Codec) Encode(ctx context.Context, t nbt.Tag, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WriteNamed(ctx, &buf, c.apply(opts).rootName, t, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON decodes a document and renders its root as JSON
func (c *Codec) ToJSON(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	named, err := c.Decode(ctx, data, opts...)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.MarshalIndent(nbt.ToPlain(named.Tag), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling to JSON: %w", err)
	}
	return jsonData, nil
}

// FromJSON encodes a JSON object as a document. Integers become Int or
// Long, other numbers Double, and object keys are written sorted.
func (c *Codec) FromJSON(ctx context.Context, jsonData []byte, opts ...Option) ([]byte, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON: %w", err)
	}

	root, err := nbt.FromPlain(data)
	if err != nil {
		return nil, fmt.Errorf("converting JSON: %w", err)
	}
	return c.Encode(ctx, root, opts...)
}

// cancelVisitor halts a parse once its context is done.
type cancelVisitor struct {
	nbt.StreamingVisitor
	ctx context.Context
	err error
}

func (v *cancelVisitor) cancelled() bool {
	if v.err == nil {
		v.err = v.ctx.Err()
	}
	return v.err != nil
}

func (v *cancelVisitor) VisitEntry(t nbt.TagType) nbt.EntryResult {
	if v.cancelled() {
		return nbt.EntryHalt
	}
	return v.StreamingVisitor.VisitEntry(t)
}

func (v *cancelVisitor) VisitElement(elem nbt.TagType, i int) nbt.EntryResult {
	if v.cancelled() {
		return nbt.EntryHalt
	}
	return v.StreamingVisitor.VisitElement(elem, i)
}
