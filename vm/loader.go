package vm

import "github.com/jedrobots/gridvm/bytecode"

// Load validates an image's header and constructs a ready-to-run Executor:
// memory is allocated and seeded from the data segment, and one Process is
// spawned per entry point with its PC set to that entry's resolved offset.
func Load(img []byte) (*Executor, error) {
	if len(img) < bytecode.FixedHeaderSize {
		return nil, &BadMagicError{}
	}

	var magic [4]byte
	copy(magic[:], img[0:4])
	if magic != bytecode.Magic {
		return nil, &BadMagicError{Got: magic}
	}

	var version [2]byte
	copy(version[:], img[4:6])
	if version != bytecode.Version {
		return nil, &UnsupportedVersionError{Got: version}
	}

	memLength := int(img[6])<<8 | int(img[7])
	memStride := int(img[8])
	dataOffset := int(img[9])
	entryCount := int(img[10])

	entryOffsetsStart := 11
	codeStart := entryOffsetsStart + entryCount
	if codeStart > len(img) || dataOffset > len(img) || dataOffset < codeStart {
		return nil, &BadMagicError{Got: magic}
	}

	entryOffsets := img[entryOffsetsStart:codeStart]
	// Entry offsets and jump operands are absolute image offsets, so the
	// executor indexes the image prefix directly; the data segment is
	// sliced off so a runaway PC can't execute initializer records.
	code := img[:dataOffset]
	data := img[dataOffset:]

	mem := NewMemory(memLength, memStride)
	for i := 0; i+2 < len(data); i += 3 {
		addr := int(data[i])<<8 | int(data[i+1])
		if err := mem.Set(addr, data[i+2]); err != nil {
			return nil, err
		}
	}

	procs := make([]*Process, entryCount)
	live := make([]int, entryCount)
	for i, off := range entryOffsets {
		procs[i] = &Process{ID: i, PC: int(off)}
		live[i] = i
	}

	return &Executor{
		Code:      code,
		CodeStart: codeStart,
		Memory:    mem,
		Procs:     procs,
		live:      live,
	}, nil
}
