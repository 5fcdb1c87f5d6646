package cpu

// SIGNAL_STEP_LIMIT bounds a single TestSignal run when no state cycle is
// found. The state key includes the full register file, so a program whose
// registers grow without bound would otherwise never repeat; exhausting the
// cap counts as "no signal", not an error.
const SIGNAL_STEP_LIMIT = 10_000_000

// signalState keys the visited-state table: repeating an exact
// (pc, registers, expected-bit) state proves the execution is periodic.
type signalState struct {
	pc     int
	reg    [REGISTER_COUNT]int
	expect int
}

// TestSignal reports whether the program, started with register a set to
// initialA, emits the infinite alternating sequence 0,1,0,1,... on its out
// instructions. The verdict is decided in bounded time: a wrong output bit
// or a halt rejects, and a repeated state accepts iff at least one output
// was produced since its first occurrence.
func (cpu *Cpu) TestSignal(initialA int) bool {
	cpu.Reset()
	cpu.Reg[0] = initialA

	expect := 0
	count := 0

	savedOut := cpu.Out
	defer func() { cpu.Out = savedOut }()
	cpu.Out = func(value int) error {
		if value != expect {
			return ErrSignalBit
		}
		expect = 1 - expect
		count++
		return nil
	}

	limit := cpu.MaxSteps
	if limit == 0 {
		limit = SIGNAL_STEP_LIMIT
	}

	seen := map[signalState]int{}
	for range limit {
		if cpu.Halted() {
			// The signal ended; it is not infinite.
			return false
		}

		state := signalState{pc: cpu.Pc, reg: cpu.Reg, expect: expect}
		if first, ok := seen[state]; ok {
			// Deterministic cycle. Valid only if it keeps producing output.
			return count > first
		}
		seen[state] = count

		if err := cpu.Step(); err != nil {
			return false
		}
	}

	return false
}

// FindMinimalA returns the smallest initial value of register a in
// [0, limit] for which TestSignal holds. Each candidate runs from a full
// reset. ok is false when no candidate qualifies.
func (cpu *Cpu) FindMinimalA(limit int) (a int, ok bool) {
	for a = 0; a <= limit; a++ {
		if cpu.TestSignal(a) {
			ok = true
			return
		}
	}

	a = 0

	return
}
