package cpu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// FuzzFusion checks the idiom equivalence property: for well-formed add and
// mul windows with arbitrary terminating register values, the fused closed
// form produces exactly the registers the unfused loop produces.
func FuzzFusion(f *testing.F) {
	f.Add(uint8(0), uint8(1), uint8(1), uint8(1))
	f.Add(uint8(1), uint8(3), uint8(4), uint8(2))
	f.Add(uint8(0), uint8(200), uint8(0), uint8(90))
	f.Add(uint8(1), uint8(10), uint8(255), uint8(1))

	f.Fuzz(func(t *testing.T, kind uint8, x uint8, y uint8, z uint8) {
		assert := assert.New(t)

		var lines []string
		var initial [REGISTER_COUNT]int
		switch kind & 1 {
		case 0:
			// add: a += b
			lines = []string{"inc a", "dec b", "jnz b -2"}
			// The loop only terminates when the counter starts positive.
			initial = [REGISTER_COUNT]int{int(x), int(y%100) + 1, 0, 0}
		case 1:
			// mul: a += z * d
			lines = []string{
				fmt.Sprintf("cpy %d c", int(z%40)+1),
				"inc a", "dec c", "jnz c -2",
				"dec d", "jnz d -5",
			}
			initial = [REGISTER_COUNT]int{int(x), 0, int(y), int(y%40) + 1}
		}

		prog := mustLoad(t, lines...)

		fusedCpu := NewCpu(prog)
		assert.NotEmpty(fusedCpu.fused)
		fusedFinal, err := fusedCpu.Run(initial)
		assert.NoError(err)

		plain := NewCpu(prog)
		plain.Reset()
		plain.Reg = initial
		for !plain.Halted() {
			plain.fused = map[int]Fusion{}
			assert.NoError(plain.Step())
		}

		assert.Equal(plain.Reg, fusedFinal)
	})
}

// FuzzToggle checks toggle totality: tgl never errors for any operand value,
// and toggling the same offset twice restores the original opcode.
func FuzzToggle(f *testing.F) {
	f.Add(-3, 0)
	f.Add(0, 1)
	f.Add(2, -7)
	f.Add(100, 100)

	f.Fuzz(func(t *testing.T, first int, second int) {
		assert := assert.New(t)

		prog := mustLoad(t,
			fmt.Sprintf("tgl %d", first),
			fmt.Sprintf("tgl %d", second),
			"inc a",
			"dec b",
			"jnz 0 0",
			"cpy 1 c",
			"out a",
		)

		cpu := NewCpu(prog)
		cpu.Reset()

		before := make([]Instruction, len(cpu.code))
		copy(before, cpu.code)

		// Step over both tgl instructions only; whatever they now point at
		// is irrelevant, the machine must not fail.
		assert.NoError(cpu.Step())
		if cpu.Pc == 1 {
			assert.NoError(cpu.Step())
		}

		// Toggling any offset twice in place is involutive on the opcode.
		for n := range cpu.code {
			in := before[n]
			in.Toggle()
			in.Toggle()
			assert.Equal(before[n].Op, in.Op, "offset %d", n)
		}
	})
}
