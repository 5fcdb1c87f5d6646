package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

var _cpu_defines = map[string]int{
	"REGISTER_COUNT":    REGISTER_COUNT,
	"SIGNAL_STEP_LIMIT": SIGNAL_STEP_LIMIT,
}

// Cpu is the Assembunny execution engine: a program counter, four registers,
// and a mutable instruction store cloned from the Program at every reset.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Program *Program // Decoded listing; cloned into the store on Reset.

	Reg   [REGISTER_COUNT]int // Register bank.
	Pc    int                 // Current program counter.
	Ticks int                 // Executed transitions; a fused span counts one.

	Out func(value int) error // Sink for out instructions; nil discards.

	MaxSteps int // Step cap for TestSignal; 0 selects SIGNAL_STEP_LIMIT.

	code  []Instruction  // Instruction store, owned by this Cpu.
	fused map[int]Fusion // Derived idiom map; rebuilt after every tgl.
}

// NewCpu creates a CPU for a decoded program, ready to run.
func NewCpu(prog *Program) (cpu *Cpu) {
	cpu = &Cpu{Program: prog}
	cpu.Reset()

	return
}

// Reset rebuilds the instruction store from the Program, clears the
// registers and counters, and recomputes the fusion map. Mutations made by
// tgl in a previous run do not survive a reset.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Reg[:])
	cpu.Pc = 0
	cpu.Ticks = 0

	if cpu.Program != nil {
		cpu.code = cpu.Program.Code()
	} else {
		cpu.code = nil
	}
	cpu.fused = findFusions(cpu.code)
}

// Halted reports whether the program counter has left the instruction store.
func (cpu *Cpu) Halted() bool {
	return cpu.Pc < 0 || cpu.Pc >= len(cpu.code)
}

// Code returns the instruction at a store offset, honoring tgl mutations.
func (cpu *Cpu) Code(pc int) (code Instruction, ok bool) {
	if pc >= 0 && pc < len(cpu.code) {
		code = cpu.code[pc]
		ok = true
	}

	return
}

// value resolves an operand against the register bank.
func (cpu *Cpu) value(arg Arg) int {
	if arg.IsReg {
		return cpu.Reg[arg.Val]
	}

	return arg.Val
}

// Step performs a single transition: a fused idiom span when the fusion map
// covers the current offset, otherwise exactly one instruction. Runtime
// irregularities (writes to non-register destinations, out-of-range tgl
// targets) are defined no-ops. The only error source is the Out sink.
func (cpu *Cpu) Step() (err error) {
	if cpu.Halted() {
		return
	}

	cpu.Ticks++

	if fuse, ok := cpu.fused[cpu.Pc]; ok {
		if cpu.Verbose {
			log.Printf("%3d: %v", cpu.Pc, fuse)
		}
		cpu.apply(fuse)
		cpu.Pc += fuse.Skip
		return
	}

	code := cpu.code[cpu.Pc]
	if cpu.Verbose {
		log.Printf("%3d: %v", cpu.Pc, code)
	}

	switch code.Op {
	case OP_CPY:
		// A toggled cpy can have a literal destination; skip it.
		if code.Args[1].IsReg {
			cpu.Reg[code.Args[1].Val] = cpu.value(code.Args[0])
		}
		cpu.Pc++
	case OP_INC:
		if code.Args[0].IsReg {
			cpu.Reg[code.Args[0].Val]++
		}
		cpu.Pc++
	case OP_DEC:
		if code.Args[0].IsReg {
			cpu.Reg[code.Args[0].Val]--
		}
		cpu.Pc++
	case OP_JNZ:
		if cpu.value(code.Args[0]) != 0 {
			cpu.Pc += cpu.value(code.Args[1])
		} else {
			cpu.Pc++
		}
	case OP_TGL:
		target := cpu.Pc + cpu.value(code.Args[0])
		if target >= 0 && target < len(cpu.code) {
			cpu.code[target].Toggle()
			// A toggle can break or create an idiom span, including one
			// starting at a lower offset. Rebuild from scratch.
			cpu.fused = findFusions(cpu.code)
		}
		cpu.Pc++
	case OP_OUT:
		if cpu.Out != nil {
			err = cpu.Out(cpu.value(code.Args[0]))
		}
		cpu.Pc++
	}

	return
}

// Run executes the program from a fresh state until it halts and returns
// the final register file.
func (cpu *Cpu) Run(initial [REGISTER_COUNT]int) (final [REGISTER_COUNT]int, err error) {
	cpu.Reset()
	cpu.Reg = initial

	for !cpu.Halted() {
		err = cpu.Step()
		if err != nil {
			return
		}
	}

	final = cpu.Reg

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("pc: %d\n", cpu.Pc)
	for n, name := range regName {
		text += fmt.Sprintf("% 2s: %d\n", name, cpu.Reg[n])
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, int] {
	return maps.All(_cpu_defines)
}
