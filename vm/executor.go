package vm

import "github.com/jedrobots/gridvm/bytecode"

// Executor is the round-robin multi-process virtual machine: a shared code
// segment and memory buffer, and one Process per spawned entry point. It
// has no preemption and no parallelism: Step runs exactly one instruction
// per still-live process, in process-id order, matching the order
// processes were appended at load (entry-point order in the header).
type Executor struct {
	// Code is the image prefix up to the data segment: header followed by
	// the code segment. PCs, entry offsets, and jump operands are all
	// absolute image offsets, so instructions are fetched by indexing
	// Code directly; CodeStart marks the first byte past the header.
	Code      []byte
	CodeStart int
	Memory    *Memory
	Procs     []*Process

	// Ticks counts instructions executed across all processes. TickLimit,
	// when nonzero, makes Run return once Ticks reaches it, bounding
	// non-terminating programs.
	Ticks     uint64
	TickLimit uint64

	// Optional instrumentation, recorded per executed instruction.
	Trace    *ExecutionTrace
	Coverage *CodeCoverage

	live []int // indices into Procs that haven't stopped
}

// Live reports whether any process is still running.
func (e *Executor) Live() bool {
	return len(e.live) > 0
}

// Run steps the executor until every process has stopped, or until the
// tick limit (if set) is reached.
func (e *Executor) Run() {
	for e.Live() {
		if e.TickLimit > 0 && e.Ticks >= e.TickLimit {
			return
		}
		e.Step()
	}
}

// Step executes exactly one instruction on every currently-live process,
// in order. A process that faults is recorded (via Process.Err) and
// removed from the live set; other processes are unaffected and keep
// running. A faulting process never halts the whole VM.
func (e *Executor) Step() {
	next := e.live[:0]
	for _, idx := range e.live {
		p := e.Procs[idx]
		e.Ticks++
		if p.PC >= e.CodeStart && p.PC < len(e.Code) {
			if e.Trace != nil {
				e.Trace.Record(p.ID, p.PC, e.Code[p.PC], e.Ticks, len(p.Stack))
			}
			if e.Coverage != nil {
				e.Coverage.Record(p.PC, e.Ticks)
			}
		}
		if err := e.stepProcess(p); err != nil {
			p.Err = err
			p.Stopped = true
			continue
		}
		if !p.Stopped {
			next = append(next, idx)
		}
	}
	e.live = next
}

// stepProcess decodes and executes the single instruction at p.PC. On
// return (absent an error) p.PC has been advanced past the instruction.
func (e *Executor) stepProcess(p *Process) error {
	if p.PC < e.CodeStart || p.PC >= len(e.Code) {
		return &PCOutOfRangeError{ProcessID: p.ID, PC: p.PC}
	}
	raw := e.Code[p.PC]

	switch {
	case bytecode.IsPush(raw):
		if p.PC+1 >= len(e.Code) {
			return &PCOutOfRangeError{ProcessID: p.ID, PC: p.PC}
		}
		addr := bytecode.PushAddr(raw, e.Code[p.PC+1])
		val, err := e.Memory.Get(addr)
		if err != nil {
			return err
		}
		p.Push(int(val))
		p.PC++ // consume the address's low byte

	default:
		op := bytecode.DecodeOp(raw)
		arg := bytecode.DecodeArg(raw)

		switch op {
		case bytecode.OpHalt:
			p.Stopped = true

		case bytecode.OpLoad:
			val, err := e.readByte(p)
			if err != nil {
				return err
			}
			p.Push(val)

		case bytecode.OpStore:
			if err := e.writeByte(p); err != nil {
				return err
			}

		case bytecode.OpStack:
			if err := e.stackOp(p, arg); err != nil {
				return err
			}

		case bytecode.OpJmp:
			target, err := e.jumpTarget(p, arg)
			if err != nil {
				return err
			}
			p.PC = target - 1

		case bytecode.OpJz:
			v, err := p.Pop()
			if err != nil {
				return err
			}
			if v == 0 {
				target, err := e.jumpTarget(p, arg)
				if err != nil {
					return err
				}
				p.PC = target - 1
			} else if arg == bytecode.LongJumpArg {
				p.PC++ // consume the unused operand byte
			}

		default:
			return &UnknownOpcodeError{ProcessID: p.ID, PC: p.PC, Opcode: byte(op)}
		}
	}

	p.PC++
	return nil
}

// jumpTarget resolves a JMP/JZ argument nibble to an absolute code offset.
// A long-form argument (0xf) consumes the next byte as the operand and
// advances p.PC past it; a short-form argument (<0xf, decoded but never
// emitted by the current compiler) is the literal target.
func (e *Executor) jumpTarget(p *Process, arg byte) (int, error) {
	if arg < bytecode.LongJumpArg {
		return int(arg), nil
	}
	if p.PC+1 >= len(e.Code) {
		return 0, &PCOutOfRangeError{ProcessID: p.ID, PC: p.PC}
	}
	target := int(e.Code[p.PC+1])
	p.PC++
	return target, nil
}
