package compiler

import (
	"fmt"

	"github.com/jedrobots/gridvm/bytecode"
	"github.com/jedrobots/gridvm/grid"
)

// WriteImage concatenates the header, code segment, and data segment into
// the final bytecode image: header || code || data.
func WriteImage(g *grid.Grid, entryOffsets []byte, code []byte) ([]byte, error) {
	memLength := g.Width * g.Height
	if memLength > 0xffff {
		return nil, fmt.Errorf("grid memory size %d exceeds the 16-bit memLength field", memLength)
	}
	if g.Width > 0xff {
		return nil, fmt.Errorf("grid width %d exceeds the 8-bit memStride field", g.Width)
	}

	headerLen := bytecode.FixedHeaderSize + len(entryOffsets)
	dataOffset := headerLen + len(code)
	if dataOffset > 0xff {
		return nil, &ImageTooLargeError{Offset: dataOffset}
	}

	img := make([]byte, 0, dataOffset+len(g.Mem)*3)
	img = append(img, bytecode.Magic[:]...)
	img = append(img, bytecode.Version[:]...)
	img = append(img, byte(memLength>>8), byte(memLength))
	img = append(img, byte(g.Width))
	img = append(img, byte(dataOffset))
	img = append(img, byte(len(entryOffsets)))
	img = append(img, entryOffsets...)
	img = append(img, code...)

	for _, m := range g.Mem {
		if m.Addr > 0xffff {
			return nil, fmt.Errorf("memory initializer address %d exceeds the 16-bit data record", m.Addr)
		}
		img = append(img, byte(m.Addr>>8), byte(m.Addr), m.Value)
	}

	return img, nil
}
