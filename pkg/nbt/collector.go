package nbt

// Collector is a StreamingVisitor that materializes exactly the values it
// is fed. Entries a wrapping visitor skips never reach it. Containers are
// built as mutable tags and attached to their parent as soon as they are
// entered, so a halted parse still leaves a consistent partial tree.
type Collector struct {
	root    Tag
	stack   []Tag // *MutableCompound or *MutableList
	pending string
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Result returns the collected root, or nil if nothing was collected.
func (c *Collector) Result() Tag { return c.root }

// Depth returns the number of containers currently open.
func (c *Collector) Depth() int { return len(c.stack) }

// Reset discards everything collected so far.
func (c *Collector) Reset() {
	c.root = nil
	c.stack = c.stack[:0]
	c.pending = ""
}

func (c *Collector) emit(t Tag) {
	if len(c.stack) == 0 {
		c.root = t
		return
	}
	switch top := c.stack[len(c.stack)-1].(type) {
	case *MutableCompound:
		top.set(c.pending, t)
	case *MutableList:
		// ids always match the declared element type here
		_ = top.Add(t)
	}
}

func (c *Collector) enter(t TagType) {
	var container Tag
	switch t.ID() {
	case TypeCompound:
		container = NewMutableCompound()
	case TypeList:
		container = NewMutableList()
	default:
		return
	}
	c.emit(container)
	c.stack = append(c.stack, container)
}

func (c *Collector) value(t Tag) ValueResult {
	c.emit(t)
	return Continue
}

func (c *Collector) VisitEnd() ValueResult               { return c.value(End) }
func (c *Collector) VisitByte(v int8) ValueResult        { return c.value(Byte(v)) }
func (c *Collector) VisitShort(v int16) ValueResult      { return c.value(Short(v)) }
func (c *Collector) VisitInt(v int32) ValueResult        { return c.value(Int(v)) }
func (c *Collector) VisitLong(v int64) ValueResult       { return c.value(Long(v)) }
func (c *Collector) VisitFloat(v float32) ValueResult    { return c.value(Float(v)) }
func (c *Collector) VisitDouble(v float64) ValueResult   { return c.value(Double(v)) }
func (c *Collector) VisitByteArray(v []byte) ValueResult { return c.value(ByteArray(v)) }
func (c *Collector) VisitString(v string) ValueResult    { return c.value(String(v)) }
func (c *Collector) VisitIntArray(v []int32) ValueResult { return c.value(IntArray(v)) }

func (c *Collector) VisitLongArray(v []int64) ValueResult { return c.value(LongArray(v)) }

// VisitList records the declared element type so empty typed lists keep
// it.
func (c *Collector) VisitList(elem TagType, _ int) ValueResult {
	if len(c.stack) > 0 {
		if l, ok := c.stack[len(c.stack)-1].(*MutableList); ok {
			l.elem = elem.ID()
		}
	}
	return Continue
}

func (c *Collector) VisitElement(elem TagType, _ int) EntryResult {
	c.enter(elem)
	return Enter
}

func (c *Collector) VisitEntry(TagType) EntryResult { return Enter }

func (c *Collector) VisitNamedEntry(t TagType, name string) EntryResult {
	c.pending = name
	c.enter(t)
	return Enter
}

func (c *Collector) VisitRootEntry(t TagType) ValueResult {
	c.enter(t)
	return Continue
}

func (c *Collector) VisitContainerEnd() ValueResult {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
	return Continue
}
