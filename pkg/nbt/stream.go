package nbt

// Stream drives v over an in-memory tree with the same control semantics
// the decoder applies to encoded input, so one visitor serves both.
func Stream(t Tag, v StreamingVisitor) ValueResult {
	switch v.VisitRootEntry(t.Type()) {
	case Halt:
		return Halt
	case Break:
		return Break
	}
	return streamValue(t, v)
}

func streamValue(t Tag, v StreamingVisitor) ValueResult {
	switch t := t.(type) {
	case *EndTag:
		return v.VisitEnd()
	case *ByteTag:
		return v.VisitByte(t.value)
	case *ShortTag:
		return v.VisitShort(t.value)
	case *IntTag:
		return v.VisitInt(t.value)
	case *LongTag:
		return v.VisitLong(t.value)
	case *FloatTag:
		return v.VisitFloat(t.value)
	case *DoubleTag:
		return v.VisitDouble(t.value)
	case *ByteArrayTag:
		return v.VisitByteArray(t.data)
	case *StringTag:
		return v.VisitString(t.value)
	case *IntArrayTag:
		return v.VisitIntArray(t.data)
	case *LongArrayTag:
		return v.VisitLongArray(t.data)
	case List:
		return streamList(t, v)
	case Compound:
		return streamCompound(t, v)
	}
	return Halt
}

func streamList(l List, v StreamingVisitor) ValueResult {
	elem := TypeOf(int(l.ElementType()))
	switch v.VisitList(elem, l.Len()) {
	case Halt:
		return Halt
	case Break:
		return v.VisitContainerEnd()
	}
	for i, e := range l.All() {
		switch v.VisitElement(elem, i) {
		case EntryHalt:
			return Halt
		case EntryBreak:
			return v.VisitContainerEnd()
		case Skip:
			continue
		}
		switch streamValue(e, v) {
		case Halt:
			return Halt
		case Break:
			return v.VisitContainerEnd()
		}
	}
	return v.VisitContainerEnd()
}

func streamCompound(c Compound, v StreamingVisitor) ValueResult {
	for name, e := range c.All() {
		t := e.Type()
		switch v.VisitEntry(t) {
		case EntryHalt:
			return Halt
		case EntryBreak:
			return v.VisitContainerEnd()
		case Skip:
			continue
		}
		switch v.VisitNamedEntry(t, name) {
		case EntryHalt:
			return Halt
		case EntryBreak:
			return v.VisitContainerEnd()
		case Skip:
			continue
		}
		switch streamValue(e, v) {
		case Halt:
			return Halt
		case Break:
			return v.VisitContainerEnd()
		}
	}
	return v.VisitContainerEnd()
}
