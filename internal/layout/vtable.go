package layout

// VTable is the computed layout for one class: a size/align header, the
// drop slot, then the ordered method slots. Offsets are in bytes from the
// v-table base.
type VTable struct {
	ClassPath string
	Slots     []string // method names in declaration order

	SizeOffset  uint64
	AlignOffset uint64
	DropOffset  uint64
	// MethodBase is the offset of slot 0; slot i lives at
	// MethodBase + i*PtrSize.
	MethodBase uint64
}

// VTableFor lays out a class's v-table: (size, align) header words, a
// drop-glue pointer, then one pointer per method in declaration order.
func VTableFor(classPath string, slots []string) VTable {
	return VTable{
		ClassPath:   classPath,
		Slots:       append([]string(nil), slots...),
		SizeOffset:  0,
		AlignOffset: 8,
		DropOffset:  16,
		MethodBase:  24,
	}
}

// SlotIndex returns a method's slot number, or -1.
func (v *VTable) SlotIndex(name string) int {
	for i, s := range v.Slots {
		if s == name {
			return i
		}
	}
	return -1
}

// SlotOffset returns the byte offset of a method slot.
func (v *VTable) SlotOffset(i int) uint64 {
	return v.MethodBase + uint64(i)*PtrSize
}
