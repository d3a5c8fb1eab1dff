package nbt

// Visitor has one method per tag kind. Walk dispatches a tag to it.
type Visitor interface {
	VisitEnd(t *EndTag)
	VisitByte(t *ByteTag)
	VisitShort(t *ShortTag)
	VisitInt(t *IntTag)
	VisitLong(t *LongTag)
	VisitFloat(t *FloatTag)
	VisitDouble(t *DoubleTag)
	VisitByteArray(t *ByteArrayTag)
	VisitString(t *StringTag)
	VisitIntArray(t *IntArrayTag)
	VisitLongArray(t *LongArrayTag)
	VisitList(t List)
	VisitCompound(t Compound)
}

// Walk calls the method of v matching the kind of t. It does not descend
// into containers; visitors recurse by calling Walk on children.
func Walk(t Tag, v Visitor) {
	switch t := t.(type) {
	case *EndTag:
		v.VisitEnd(t)
	case *ByteTag:
		v.VisitByte(t)
	case *ShortTag:
		v.VisitShort(t)
	case *IntTag:
		v.VisitInt(t)
	case *LongTag:
		v.VisitLong(t)
	case *FloatTag:
		v.VisitFloat(t)
	case *DoubleTag:
		v.VisitDouble(t)
	case *ByteArrayTag:
		v.VisitByteArray(t)
	case *StringTag:
		v.VisitString(t)
	case *IntArrayTag:
		v.VisitIntArray(t)
	case *LongArrayTag:
		v.VisitLongArray(t)
	case List:
		v.VisitList(t)
	case Compound:
		v.VisitCompound(t)
	}
}

// Counter is a Visitor that tallies tags by kind across a whole tree.
type Counter struct {
	Counts [typeCount]int
}

// Total returns the number of tags counted.
func (c *Counter) Total() int {
	n := 0
	for _, k := range c.Counts {
		n += k
	}
	return n
}

func (c *Counter) VisitEnd(*EndTag)             { c.Counts[TypeEnd]++ }
func (c *Counter) VisitByte(*ByteTag)           { c.Counts[TypeByte]++ }
func (c *Counter) VisitShort(*ShortTag)         { c.Counts[TypeShort]++ }
func (c *Counter) VisitInt(*IntTag)             { c.Counts[TypeInt]++ }
func (c *Counter) VisitLong(*LongTag)           { c.Counts[TypeLong]++ }
func (c *Counter) VisitFloat(*FloatTag)         { c.Counts[TypeFloat]++ }
func (c *Counter) VisitDouble(*DoubleTag)       { c.Counts[TypeDouble]++ }
func (c *Counter) VisitByteArray(*ByteArrayTag) { c.Counts[TypeByteArray]++ }
func (c *Counter) VisitString(*StringTag)       { c.Counts[TypeString]++ }
func (c *Counter) VisitIntArray(*IntArrayTag)   { c.Counts[TypeIntArray]++ }
func (c *Counter) VisitLongArray(*LongArrayTag) { c.Counts[TypeLongArray]++ }

func (c *Counter) VisitList(l List) {
	c.Counts[TypeList]++
	for _, e := range l.All() {
		Walk(e, c)
	}
}

func (c *Counter) VisitCompound(m Compound) {
	c.Counts[TypeCompound]++
	for _, e := range m.All() {
		Walk(e, c)
	}
}
