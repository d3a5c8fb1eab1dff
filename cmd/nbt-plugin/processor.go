package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/twinfer/nbt-plugin/internal/cel"
	"github.com/twinfer/nbt-plugin/pkg/nbt"
	"github.com/twinfer/nbt-plugin/pkg/nbtio"
	"github.com/twinfer/nbt-plugin/pkg/tagpath"
)

const (
	opToStructured   = "to_structured"
	opFromStructured = "from_structured"
)

// NBTProcessor is a Benthos processor that converts between binary tag
// documents and structured messages.
type NBTProcessor struct {
	config    NBTConfig
	codec     *nbtio.Codec
	path      *tagpath.Path
	filters   *cel.ExpressionPool
	logger    *service.Logger
	mDecoded  *service.MetricCounter
	mEncoded  *service.MetricCounter
	mFiltered *service.MetricCounter
	mErrors   *service.MetricCounter
}

// NBTConfig contains configuration parameters for the nbt processor.
type NBTConfig struct {
	Operator    string `json:"operator" yaml:"operator"`
	Compression string `json:"compression" yaml:"compression"`
	RootName    string `json:"root_name" yaml:"root_name"`
	Path        string `json:"path" yaml:"path"`
	Filter      string `json:"filter" yaml:"filter"`
}

func init() {
	err := service.RegisterProcessor(
		"nbt",
		nbtProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newNBTProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

// nbtProcessorConfig returns a config spec for an nbt processor.
func nbtProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Decodes binary tag documents into structured messages, or encodes structured messages back.").
		Description("Compounds become objects, lists and arrays become arrays, and every numeric kind becomes a number. " +
			"Encoding picks Int or Long for integers and Double for other numbers.").
		Field(service.NewStringEnumField("operator", opToStructured, opFromStructured).
			Description("Direction of the conversion.").
			Default(opToStructured)).
		Field(service.NewStringEnumField("compression", "auto", "none", "gzip", "zlib", "lz4").
			Description("Compression envelope. When decoding, auto detects it from the leading bytes; when encoding, auto writes gzip.").
			Default("auto")).
		Field(service.NewStringField("root_name").
			Description("Name written for the root tag when encoding.").
			Default("")).
		Field(service.NewStringField("path").
			Description("Optional tag path; when decoding, only the addressed value is emitted.").
			Example("Data.Player.Pos[1]").
			Default("")).
		Field(service.NewStringField("filter").
			Description("Optional CEL expression over the variable tag. Messages for which it is false are dropped.").
			Example(`tag.Data.hardcore == 1`).
			Default("")).
		Version("0.1.0")
}

// newNBTProcessorFromConfig creates a new NBTProcessor from a parsed config.
func newNBTProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*NBTProcessor, error) {
	var config NBTConfig
	var err error
	if config.Operator, err = conf.FieldString("operator"); err != nil {
		return nil, err
	}
	if config.Compression, err = conf.FieldString("compression"); err != nil {
		return nil, err
	}
	if config.RootName, err = conf.FieldString("root_name"); err != nil {
		return nil, err
	}
	if config.Path, err = conf.FieldString("path"); err != nil {
		return nil, err
	}
	if config.Filter, err = conf.FieldString("filter"); err != nil {
		return nil, err
	}
	return newNBTProcessor(config, mgr)
}

func newNBTProcessor(config NBTConfig, mgr *service.Resources) (*NBTProcessor, error) {
	if config.Operator != opToStructured && config.Operator != opFromStructured {
		return nil, fmt.Errorf("unknown operator %q", config.Operator)
	}
	compression, err := nbtio.ParseCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	p := &NBTProcessor{
		config: config,
		codec: nbtio.NewCodec(
			nbtio.WithCompression(compression),
			nbtio.WithRootName(config.RootName),
		),
		logger: mgr.Logger(),
	}

	if config.Path != "" {
		if p.path, err = tagpath.Parse(config.Path); err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
	}
	if config.Filter != "" {
		if p.filters, err = cel.NewExpressionPool(); err != nil {
			return nil, err
		}
		if _, err := p.filters.GetExpression(config.Filter); err != nil {
			return nil, fmt.Errorf("invalid filter: %w", err)
		}
	}

	metrics := mgr.Metrics()
	p.mDecoded = metrics.NewCounter("nbt_decoded_messages")
	p.mEncoded = metrics.NewCounter("nbt_encoded_messages")
	p.mFiltered = metrics.NewCounter("nbt_filtered_messages")
	p.mErrors = metrics.NewCounter("nbt_processing_errors")
	return p, nil
}

// Process applies decoding or encoding to a message.
func (p *NBTProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	if p.config.Operator == opToStructured {
		return p.decode(ctx, msg)
	}
	return p.encode(ctx, msg)
}

func (p *NBTProcessor) fail(msg *service.Message, err error) (service.MessageBatch, error) {
	p.logger.Errorf("%v", err)
	p.mErrors.Incr(1)
	msg.SetError(err)
	return service.MessageBatch{msg}, nil
}

// keep reports whether root passes the filter.
func (p *NBTProcessor) keep(root nbt.Tag) (bool, error) {
	if p.filters == nil {
		return true, nil
	}
	ok, err := p.filters.Matches(p.config.Filter, root)
	if err != nil {
		return false, fmt.Errorf("filter: %w", err)
	}
	if !ok {
		p.mFiltered.Incr(1)
	}
	return ok, nil
}

// decode turns a binary document into a structured message.
func (p *NBTProcessor) decode(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	p.logger.Debug("Decoding tag document")

	binData, err := msg.AsBytes()
	if err != nil {
		return p.fail(msg, fmt.Errorf("failed to get binary data from message: %w", err))
	}
	if len(binData) == 0 {
		return p.fail(msg, fmt.Errorf("empty binary data provided"))
	}

	var (
		name string
		out  nbt.Tag
	)
	if p.path != nil && p.filters == nil {
		// nothing needs the whole tree
		found, ok, err := p.codec.Extract(ctx, bytes.NewReader(binData), p.config.Path)
		if err != nil {
			return p.fail(msg, fmt.Errorf("failed to decode %d bytes: %w", len(binData), err))
		}
		if !ok {
			return p.fail(msg, fmt.Errorf("no value at path %s", p.path))
		}
		out = found
	} else {
		named, err := p.codec.Decode(ctx, binData)
		if err != nil {
			return p.fail(msg, fmt.Errorf("failed to decode %d bytes: %w", len(binData), err))
		}
		keep, err := p.keep(named.Tag)
		if err != nil {
			return p.fail(msg, err)
		}
		if !keep {
			return nil, nil
		}
		name, out = named.Name, named.Tag
		if p.path != nil {
			found, ok := p.path.Lookup(named.Tag)
			if !ok {
				return p.fail(msg, fmt.Errorf("no value at path %s", p.path))
			}
			out = found
		}
	}

	p.logger.Debugf("Decoded %d bytes of binary data", len(binData))
	p.mDecoded.Incr(1)

	newMsg := msg.Copy()
	newMsg.SetStructured(structured(out))
	newMsg.MetaSet("nbt_compression", nbtio.DetectCompression(binData).String())
	newMsg.MetaSet("nbt_root_type", out.Type().PrettyName())
	if p.path == nil {
		newMsg.MetaSet("nbt_root_name", name)
	}
	return service.MessageBatch{newMsg}, nil
}

// encode turns a structured message into a binary document.
func (p *NBTProcessor) encode(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	p.logger.Debug("Encoding structured data to tag document")

	structData, err := msg.AsStructured()
	if err != nil {
		return p.fail(msg, fmt.Errorf("failed to get structured data from message: %w", err))
	}
	root, err := nbt.FromPlain(structData)
	if err != nil {
		return p.fail(msg, fmt.Errorf("failed to convert structured data: %w", err))
	}
	keep, err := p.keep(root)
	if err != nil {
		return p.fail(msg, err)
	}
	if !keep {
		return nil, nil
	}

	binData, err := p.codec.Encode(ctx, root)
	if err != nil {
		return p.fail(msg, fmt.Errorf("failed to encode data: %w", err))
	}

	p.logger.Debugf("Encoded structured data to %d bytes", len(binData))
	p.mEncoded.Incr(1)

	newMsg := msg.Copy()
	newMsg.SetBytes(binData)
	return service.MessageBatch{newMsg}, nil
}

// structured widens plain tag values to the int64, float64, []any and
// map[string]any shapes other processors expect. Byte arrays stay []byte.
func structured(t nbt.Tag) any {
	return widen(nbt.ToPlain(t))
}

func widen(v any) any {
	switch v := v.(type) {
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []int32:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = int64(e)
		}
		return out
	case []int64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case []any:
		for i, e := range v {
			v[i] = widen(e)
		}
		return v
	case map[string]any:
		for k, e := range v {
			v[k] = widen(e)
		}
		return v
	}
	return v
}

// Close the processor resources
func (p *NBTProcessor) Close(ctx context.Context) error {
	p.logger.Debug("Closing nbt processor")
	p.codec.ClearCache()
	return nil
}
