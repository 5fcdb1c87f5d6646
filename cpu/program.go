package cpu

import (
	"iter"
	"slices"
)

// Line is one decoded source line with its program offset.
type Line struct {
	LineNo int      // Source line number (1-based).
	Words  []string // Original source words.
	Code   Instruction
}

// Program is the decoded listing. It is immutable after decoding; the Cpu
// clones its instructions at reset, so tgl mutations never alter the Program.
type Program struct {
	Lines []Line
}

// Len returns the number of instructions in the program.
func (prog *Program) Len() int {
	return len(prog.Lines)
}

// Code returns a fresh mutable copy of the instruction store.
func (prog *Program) Code() (code []Instruction) {
	code = make([]Instruction, 0, len(prog.Lines))
	for _, line := range prog.Lines {
		code = append(code, Instruction{
			Op:   line.Code.Op,
			Args: slices.Clone(line.Code.Args),
		})
	}

	return
}

// Instructions iterates the decoded instructions by program offset.
func (prog *Program) Instructions() iter.Seq2[int, Instruction] {
	return func(yield func(pc int, in Instruction) bool) {
		for n, line := range prog.Lines {
			if !yield(n, line.Code) {
				return
			}
		}
	}
}

// Debug returns the source line for a program offset, or nil when the
// offset is out of bounds.
func (prog *Program) Debug(pc int) (line *Line) {
	if pc >= 0 && pc < len(prog.Lines) {
		line = &prog.Lines[pc]
	}

	return
}
