package ctype

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// computeLayout places members per native ABI rules: each member offset is
// rounded up to min(member alignment, packing); struct alignment is
// min(packing, max member alignment); total size is rounded up to the
// struct alignment. Unions place every member at offset 0.
func computeLayout(members []Member, packing uint32, union bool) ([]Member, Layout, error) {
	if packing == 0 {
		packing = defaultPacking
	}

	maxAlign := uint32(1)
	maxSize := uint32(0)
	offset := uint32(0)

	placed := make([]Member, len(members))
	for i, m := range members {
		ml, err := m.Type.Layout()
		if err != nil {
			return nil, Layout{}, err
		}

		align := ml.Align
		if align > packing {
			align = packing
		}
		if align > maxAlign {
			maxAlign = align
		}

		if union {
			m.Offset = 0
			if ml.Size > maxSize {
				maxSize = ml.Size
			}
		} else {
			offset = AlignTo(offset, align)
			m.Offset = offset
			offset += ml.Size
		}
		placed[i] = m
	}

	var size uint32
	if union {
		size = AlignTo(maxSize, maxAlign)
	} else {
		size = AlignTo(offset, maxAlign)
	}

	return placed, Layout{Size: size, Align: maxAlign}, nil
}
