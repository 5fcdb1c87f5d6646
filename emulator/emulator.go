// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"iter"
	"maps"
	"slices"

	"github.com/ezrec/assembunny/cpu"
	"github.com/ezrec/assembunny/internal"
)

const (
	SEARCH_LIMIT = 10000 // Default upper bound for the minimal-a search.
)

var _emulator_defines = map[string]int{
	"SEARCH_LIMIT": SEARCH_LIMIT,
}

// Snapshot is one observed machine state, taken after a tick.
type Snapshot struct {
	Tick   int                     `json:"tick"`
	Pc     int                     `json:"pc"`
	LineNo int                     `json:"line"`
	Code   string                  `json:"code,omitempty"`
	Reg    [cpu.REGISTER_COUNT]int `json:"reg"`
	Out    []int                   `json:"out,omitempty"`
}

// Emulator state. CPU + program listing + output tape.
type Emulator struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the CPU simulation.

	Program *cpu.Program // Reference to the currently loaded listing.

	Tape Tape // Output tape fed by out instructions.

	Watch func(Snapshot) // Called after every tick when set.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu: cpu.NewCpu(nil),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, int] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the emulator state: rewind the tape and rebuild the CPU's
// instruction store from the current Program.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Program = emu.Program
	emu.Cpu.Out = emu.Tape.Send
	emu.Tape.Rewind()
	emu.Cpu.Reset()
}

// LineNo returns the source line number for the executing offset.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	line := emu.Program.Debug(emu.Cpu.Pc)
	if line == nil {
		return 0
	}

	return line.LineNo
}

// Snapshot captures the current machine state.
func (emu *Emulator) Snapshot() (snap Snapshot) {
	snap = Snapshot{
		Tick:   emu.Cpu.Ticks,
		Pc:     emu.Cpu.Pc,
		LineNo: emu.LineNo(),
		Reg:    emu.Cpu.Reg,
		Out:    slices.Clone(emu.Tape.Values),
	}

	if code, ok := emu.Cpu.Code(emu.Cpu.Pc); ok {
		snap.Code = code.String()
	}

	return
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu.Halted() {
		done = true
		return
	}

	lineno := emu.LineNo()
	err = emu.Cpu.Step()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Err: err}
		return
	}

	if emu.Watch != nil {
		emu.Watch(emu.Snapshot())
	}

	done = emu.Cpu.Halted()

	return
}

// Run executes the program from the given initial registers until it halts
// and returns the final register file.
func (emu *Emulator) Run(initial [cpu.REGISTER_COUNT]int) (final [cpu.REGISTER_COUNT]int, err error) {
	emu.Reset()
	emu.Cpu.Reg = initial

	for {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	final = emu.Cpu.Reg

	return
}

// TestSignal reports whether the program produces the alternating clock
// signal from the given initial value of register a.
func (emu *Emulator) TestSignal(initialA int) bool {
	emu.Reset()

	return emu.Cpu.TestSignal(initialA)
}

// Search returns the smallest initial a in [0, limit] that produces the
// clock signal; limit <= 0 selects SEARCH_LIMIT.
func (emu *Emulator) Search(limit int) (a int, ok bool) {
	emu.Reset()

	if limit <= 0 {
		limit = SEARCH_LIMIT
	}

	return emu.Cpu.FindMinimalA(limit)
}
