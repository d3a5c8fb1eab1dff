package main

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// palette maps tag kinds to color functions. Kinds without an entry
// print plain.
type palette struct {
	name   func(string, ...any) string
	punct  func(string, ...any) string
	byKind map[nbt.TypeID]func(string, ...any) string
}

func newPalette() *palette {
	number := color.RGB(128, 216, 236).SprintfFunc()
	return &palette{
		name:  color.RGB(196, 96, 16).SprintfFunc(),
		punct: color.RGB(96, 96, 96).SprintfFunc(),
		byKind: map[nbt.TypeID]func(string, ...any) string{
			nbt.TypeByte:   number,
			nbt.TypeShort:  number,
			nbt.TypeInt:    number,
			nbt.TypeLong:   number,
			nbt.TypeFloat:  number,
			nbt.TypeDouble: number,
			nbt.TypeString: color.RGB(8, 196, 16).SprintfFunc(),
		},
	}
}

func (p *palette) value(id nbt.TypeID, s string) string {
	if f := p.byKind[id]; f != nil {
		return f("%s", s)
	}
	return s
}

// printer renders tag trees as indented text in the usual stringified
// tag syntax.
type printer struct {
	w      io.Writer
	colors *palette
	indent string
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, colors: newPalette(), indent: "  "}
}

func (p *printer) Print(t nbt.Tag) error {
	var b strings.Builder
	p.write(&b, t, 0)
	b.WriteByte('\n')
	_, err := io.WriteString(p.w, b.String())
	return err
}

var plainKey = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)

func quoteKey(name string) string {
	if plainKey.MatchString(name) {
		return name
	}
	return strconv.Quote(name)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// scalar renders a value kind, or reports false for containers and arrays.
func scalar(t nbt.Tag) (string, bool) {
	switch t := t.(type) {
	case *nbt.ByteTag:
		return strconv.Itoa(int(t.Value())) + "b", true
	case *nbt.ShortTag:
		return strconv.Itoa(int(t.Value())) + "s", true
	case *nbt.IntTag:
		return strconv.Itoa(int(t.Value())), true
	case *nbt.LongTag:
		return strconv.FormatInt(t.Value(), 10) + "L", true
	case *nbt.FloatTag:
		return formatFloat(float64(t.Value()), 32) + "f", true
	case *nbt.DoubleTag:
		return formatFloat(t.Value(), 64) + "d", true
	case *nbt.StringTag:
		return strconv.Quote(t.Value()), true
	case *nbt.EndTag:
		return "END", true
	}
	return "", false
}

func (p *printer) newline(b *strings.Builder, depth int) {
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(p.indent, depth))
}

func (p *printer) write(b *strings.Builder, t nbt.Tag, depth int) {
	if s, ok := scalar(t); ok {
		b.WriteString(p.colors.value(t.ID(), s))
		return
	}
	switch t := t.(type) {
	case *nbt.ByteArrayTag:
		p.array(b, "B", t.Len(), func(i int) string { return fmt.Sprintf("%db", t.Get(i).Value()) })
	case *nbt.IntArrayTag:
		p.array(b, "I", t.Len(), func(i int) string { return strconv.Itoa(int(t.Get(i).Value())) })
	case *nbt.LongArrayTag:
		p.array(b, "L", t.Len(), func(i int) string { return strconv.FormatInt(t.Get(i).Value(), 10) + "L" })
	case nbt.List:
		if t.Len() == 0 {
			b.WriteString(p.colors.punct("[]"))
			return
		}
		b.WriteString(p.colors.punct("["))
		first := true
		for _, e := range t.All() {
			if !first {
				b.WriteString(p.colors.punct(","))
			}
			first = false
			p.newline(b, depth+1)
			p.write(b, e, depth+1)
		}
		p.newline(b, depth)
		b.WriteString(p.colors.punct("]"))
	case nbt.Compound:
		if t.Len() == 0 {
			b.WriteString(p.colors.punct("{}"))
			return
		}
		b.WriteString(p.colors.punct("{"))
		first := true
		for name, e := range t.All() {
			if !first {
				b.WriteString(p.colors.punct(","))
			}
			first = false
			p.newline(b, depth+1)
			b.WriteString(p.colors.name("%s", quoteKey(name)))
			b.WriteString(p.colors.punct(": "))
			p.write(b, e, depth+1)
		}
		p.newline(b, depth)
		b.WriteString(p.colors.punct("}"))
	}
}

func (p *printer) array(b *strings.Builder, prefix string, n int, elem func(int) string) {
	b.WriteString(p.colors.punct("[" + prefix + ";"))
	for i := range n {
		if i > 0 {
			b.WriteString(p.colors.punct(","))
		}
		b.WriteByte(' ')
		b.WriteString(p.colors.value(nbt.TypeInt, elem(i)))
	}
	b.WriteString(p.colors.punct("]"))
}
