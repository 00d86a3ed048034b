package vm

// readByte implements the LOAD stack protocol: pop dy, dx, y, x
// (in that order: x was pushed first, dy pushed last), then read 8
// consecutive bit-cells starting at (x,y) stepping by (dx,dy), MSB-first.
func (e *Executor) readByte(p *Process) (int, error) {
	if len(p.Stack) < 4 {
		return 0, &StackUnderflowError{ProcessID: p.ID, PC: p.PC}
	}
	n := len(p.Stack)
	dy, dx, y, x := p.Stack[n-1], p.Stack[n-2], p.Stack[n-3], p.Stack[n-4]
	p.Stack = p.Stack[:n-4]

	value := 0
	for i := 0; i < 8; i++ {
		bit, err := e.Memory.Get(e.Memory.Addr(x, y))
		if err != nil {
			return 0, err
		}
		value |= int(bit&1) << (7 - i)
		x += dx
		y += dy
	}
	return value, nil
}

// writeByte implements the STORE stack protocol: pop dy, dx, y,
// x, value (value sits beneath the coordinate quadruple, typically left on
// the stack by an earlier LOAD), then write 8 consecutive bit-cells
// starting at (x,y) stepping by (dx,dy), MSB-first.
func (e *Executor) writeByte(p *Process) error {
	if len(p.Stack) < 5 {
		return &StackUnderflowError{ProcessID: p.ID, PC: p.PC}
	}
	n := len(p.Stack)
	dy, dx, y, x, value := p.Stack[n-1], p.Stack[n-2], p.Stack[n-3], p.Stack[n-4], p.Stack[n-5]
	p.Stack = p.Stack[:n-5]

	for i := 0; i < 8; i++ {
		bit := byte((value >> (7 - i)) & 1)
		if err := e.Memory.Set(e.Memory.Addr(x, y), bit); err != nil {
			return err
		}
		x += dx
		y += dy
	}
	return nil
}
