package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFusions_Mul(t *testing.T) {
	assert := assert.New(t)

	prog := mustLoad(t,
		"cpy 2 a",
		"cpy 3 b",
		"cpy 4 c",
		"inc a",
		"dec c",
		"jnz c -2",
		"dec b",
		"jnz b -5",
	)

	fused := findFusions(prog.Code())
	assert.Len(fused, 1)

	fuse, ok := fused[2]
	assert.True(ok)
	assert.Equal(6, fuse.Skip)
	assert.Equal(FUSE_MUL, fuse.Kind)
	assert.Equal(0, fuse.Dst)
	assert.Equal(MakeArgImm(4), fuse.Src)
	assert.Equal(1, fuse.Outer)
	assert.Equal(2, fuse.Tmp)
}

func TestFindFusions_Add(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		lines []string
		dst   int
		tmp   int
	}){
		{"inc_first", []string{"inc a", "dec d", "jnz d -2"}, 0, 3},
		{"dec_first", []string{"dec d", "inc a", "jnz d -2"}, 0, 3},
	}

	for _, entry := range table {
		fused := findFusions(mustLoad(t, entry.lines...).Code())
		assert.Len(fused, 1, entry.name)

		fuse := fused[0]
		assert.Equal(3, fuse.Skip, entry.name)
		assert.Equal(FUSE_ADD, fuse.Kind, entry.name)
		assert.Equal(entry.dst, fuse.Dst, entry.name)
		assert.Equal(entry.tmp, fuse.Tmp, entry.name)
	}
}

func TestFindFusions_PartialMatchesRejected(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		lines []string
	}){
		// Offset literal must be exactly -2.
		{"wrong_offset", []string{"inc a", "dec d", "jnz d -3"}},
		// The jnz must test the decremented register.
		{"mismatched_register", []string{"inc a", "dec d", "jnz c -2"}},
		// A register-valued offset is never a loop idiom.
		{"register_offset", []string{"inc a", "dec d", "jnz d c"}},
		// Accumulator and counter must differ, or the closed form breaks.
		{"degenerate_add", []string{"inc a", "dec a", "jnz a -2"}},
		// Mul inner jump must be -2, outer -5.
		{"mul_wrong_inner", []string{"cpy 4 c", "inc a", "dec c", "jnz c -3", "dec b", "jnz b -5"}},
		{"mul_wrong_outer", []string{"cpy 4 c", "inc a", "dec c", "jnz c -2", "dec b", "jnz b -4"}},
		// Mul counter cross-references must line up.
		{"mul_mixed_counter", []string{"cpy 4 c", "inc a", "dec c", "jnz d -2", "dec b", "jnz b -5"}},
		// Mul source register must not alias a counter or the accumulator.
		{"mul_alias_source", []string{"cpy b c", "inc a", "dec c", "jnz c -2", "dec b", "jnz b -5"}},
		{"mul_alias_accumulator", []string{"cpy a c", "inc a", "dec c", "jnz c -2", "dec b", "jnz b -5"}},
	}

	for _, entry := range table {
		code := mustLoad(t, entry.lines...).Code()
		m := findFusions(code)
		for pc, fuse := range m {
			assert.NotEqual(0, pc, "%s: unexpected %v", entry.name, fuse)
		}
	}
}

func TestFindFusions_InnerAddNotShadowedByMul(t *testing.T) {
	assert := assert.New(t)

	// When the 6-instruction window fails to match, the 3-instruction
	// window inside it must still fuse on its own.
	prog := mustLoad(t,
		"cpy b c",
		"inc a",
		"dec c",
		"jnz c -2",
		"dec b",
		"jnz b -5",
	)

	fused := findFusions(prog.Code())
	fuse, ok := fused[1]
	assert.True(ok)
	assert.Equal(FUSE_ADD, fuse.Kind)
	assert.Equal(0, fuse.Dst)
	assert.Equal(2, fuse.Tmp)
}

func TestFindFusions_NonOverlapping(t *testing.T) {
	assert := assert.New(t)

	// Two back-to-back add idioms; the scanner resumes past each span.
	prog := mustLoad(t,
		"inc a",
		"dec b",
		"jnz b -2",
		"inc a",
		"dec c",
		"jnz c -2",
	)

	fused := findFusions(prog.Code())
	assert.Len(fused, 2)
	assert.Contains(fused, 0)
	assert.Contains(fused, 3)
}

func TestFusion_ToggleForcesReanalysis(t *testing.T) {
	assert := assert.New(t)

	// The tgl rewrites the jnz that closes an add idiom below it. If the
	// stale fusion survived, a would absorb c; re-analysis must leave the
	// window unfused and execute it instruction by instruction.
	cpu := NewCpu(mustLoad(t,
		"tgl 3",
		"inc a",
		"dec c",
		"jnz c -2",
	))

	cpu.Reset()
	cpu.Reg[2] = 5
	for !cpu.Halted() {
		assert.NoError(cpu.Step())
	}

	assert.Equal(1, cpu.Reg[0])
	assert.Equal(4, cpu.Reg[2])
}

func TestFusion_EquivalenceAgainstUnfused(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		lines   []string
		initial [REGISTER_COUNT]int
	}){
		{"add", []string{"inc a", "dec b", "jnz b -2"},
			[REGISTER_COUNT]int{3, 9, 0, 0}},
		{"add_swapped", []string{"dec d", "inc c", "jnz d -2"},
			[REGISTER_COUNT]int{0, 0, 2, 11}},
		{"mul", []string{"cpy 2 a", "cpy 3 b", "cpy 4 c",
			"inc a", "dec c", "jnz c -2", "dec b", "jnz b -5"},
			[REGISTER_COUNT]int{}},
		{"mul_register_source", []string{"cpy d c",
			"inc a", "dec c", "jnz c -2", "dec b", "jnz b -5"},
			[REGISTER_COUNT]int{1, 6, 0, 5}},
	}

	for _, entry := range table {
		prog := mustLoad(t, entry.lines...)

		fusedCpu := NewCpu(prog)
		fusedFinal, err := fusedCpu.Run(entry.initial)
		assert.NoError(err, entry.name)

		// A reference interpreter that never fuses.
		plain := NewCpu(prog)
		plain.Reset()
		plain.Reg = entry.initial
		for !plain.Halted() {
			plain.fused = map[int]Fusion{}
			assert.NoError(plain.Step(), entry.name)
		}

		assert.Equal(plain.Reg, fusedFinal, entry.name)
	}
}
