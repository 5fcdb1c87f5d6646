package cpu

import (
	"fmt"
	"strings"
)

const (
	REGISTER_COUNT = 4 // Registers a, b, c and d.
)

// Opcode is an Assembunny operation type.
type Opcode int

const (
	OP_CPY = Opcode(0) // cpy
	OP_INC = Opcode(1) // inc
	OP_DEC = Opcode(2) // dec
	OP_JNZ = Opcode(3) // jnz
	OP_TGL = Opcode(4) // tgl
	OP_OUT = Opcode(5) // out
)

var opName = map[Opcode]string{
	OP_CPY: "cpy",
	OP_INC: "inc",
	OP_DEC: "dec",
	OP_JNZ: "jnz",
	OP_TGL: "tgl",
	OP_OUT: "out",
}

// opMap is the mnemonic decode table.
var opMap = map[string]Opcode{
	"cpy": OP_CPY,
	"inc": OP_INC,
	"dec": OP_DEC,
	"jnz": OP_JNZ,
	"tgl": OP_TGL,
	"out": OP_OUT,
}

// opArity is the required operand count per opcode.
var opArity = map[Opcode]int{
	OP_CPY: 2,
	OP_INC: 1,
	OP_DEC: 1,
	OP_JNZ: 2,
	OP_TGL: 1,
	OP_OUT: 1,
}

// String returns the mnemonic for this opcode.
func (op Opcode) String() string {
	name, ok := opName[op]
	if !ok {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return name
}

// regMap is a map of register names to register indexes.
var regMap = map[string]int{
	"a": 0,
	"b": 1,
	"c": 2,
	"d": 3,
}

// regName is the inverse of regMap.
var regName = [REGISTER_COUNT]string{"a", "b", "c", "d"}

// RegisterIndex maps a register name to its index.
func RegisterIndex(name string) (index int, ok bool) {
	index, ok = regMap[name]

	return
}

// RegisterName maps a register index to its name.
func RegisterName(index int) string {
	return regName[index]
}

// Arg is a decoded operand: a register index or an immediate value.
// Immutable once decoded.
type Arg struct {
	IsReg bool // True if Val is a register index.
	Val   int  // Register index (0..REGISTER_COUNT-1) or immediate value.
}

// MakeArgReg creates a register operand.
func MakeArgReg(index int) Arg {
	return Arg{IsReg: true, Val: index}
}

// MakeArgImm creates an immediate operand.
func MakeArgImm(value int) Arg {
	return Arg{Val: value}
}

// String returns the assembly representation of the operand.
func (arg Arg) String() string {
	if arg.IsReg {
		return regName[arg.Val]
	}
	return fmt.Sprintf("%d", arg.Val)
}

// Instruction is an opcode with its decoded operands. Only the opcode tag
// ever mutates (via tgl); the operand list is fixed at decode time.
type Instruction struct {
	Op   Opcode
	Args []Arg
}

// Toggle flips the opcode class in place: one-operand instructions swap
// between inc and dec (anything else becomes inc), two-operand instructions
// swap between jnz and cpy.
func (in *Instruction) Toggle() {
	if len(in.Args) == 1 {
		if in.Op == OP_INC {
			in.Op = OP_DEC
		} else {
			in.Op = OP_INC
		}
	} else {
		if in.Op == OP_JNZ {
			in.Op = OP_CPY
		} else {
			in.Op = OP_JNZ
		}
	}
}

// String returns the assembly representation of the instruction.
func (in Instruction) String() string {
	words := []string{in.Op.String()}
	for _, arg := range in.Args {
		words = append(words, arg.String())
	}
	return strings.Join(words, " ")
}
