package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Parse(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		code   []Instruction
	}){
		{"copy_imm", "cpy 41 a", []Instruction{
			{Op: OP_CPY, Args: []Arg{MakeArgImm(41), MakeArgReg(0)}},
		}},
		{"copy_reg", "cpy a d", []Instruction{
			{Op: OP_CPY, Args: []Arg{MakeArgReg(0), MakeArgReg(3)}},
		}},
		{"negative_offset", "jnz c -2", []Instruction{
			{Op: OP_JNZ, Args: []Arg{MakeArgReg(2), MakeArgImm(-2)}},
		}},
		{"single_operand", "inc b\ndec c\ntgl d\nout a", []Instruction{
			{Op: OP_INC, Args: []Arg{MakeArgReg(1)}},
			{Op: OP_DEC, Args: []Arg{MakeArgReg(2)}},
			{Op: OP_TGL, Args: []Arg{MakeArgReg(3)}},
			{Op: OP_OUT, Args: []Arg{MakeArgReg(0)}},
		}},
		{"skips_blank_and_comments", "\n; a comment\ninc a\n\n# another\ndec a\n", []Instruction{
			{Op: OP_INC, Args: []Arg{MakeArgReg(0)}},
			{Op: OP_DEC, Args: []Arg{MakeArgReg(0)}},
		}},
		{"out_literal", "out 0", []Instruction{
			{Op: OP_OUT, Args: []Arg{MakeArgImm(0)}},
		}},
	}

	for _, entry := range table {
		dec := &Decoder{}
		prog, err := dec.Parse(strings.NewReader(entry.source))
		require.NoError(t, err, entry.name)
		require.NotNil(t, prog, entry.name)
		assert.Equal(len(entry.code), prog.Len(), entry.name)
		for n, want := range entry.code {
			assert.Equal(want, prog.Lines[n].Code, entry.name)
		}
	}
}

func TestDecoder_LineNumbers(t *testing.T) {
	assert := assert.New(t)

	source := "; header\ninc a\n\njnz a -1\n"
	prog, err := (&Decoder{}).Parse(strings.NewReader(source))
	assert.NoError(err)
	assert.Equal(2, prog.Lines[0].LineNo)
	assert.Equal(4, prog.Lines[1].LineNo)

	line := prog.Debug(1)
	assert.NotNil(line)
	assert.Equal(4, line.LineNo)
	assert.Nil(prog.Debug(2))
	assert.Nil(prog.Debug(-1))
}

func TestDecoder_Errors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		source string
		lineno int
	}){
		{"bad_operand", "inc a\ncpy 1x a", 2},
		{"bad_register", "cpy 1 e", 1},
		{"missing_operand", "cpy 1", 1},
		{"extra_operand", "inc a b", 1},
		{"bad_expression", "cpy $(nope) a", 1},
	}

	for _, entry := range table {
		prog, err := (&Decoder{}).Parse(strings.NewReader(entry.source))
		assert.Error(err, entry.name)
		assert.Nil(prog, entry.name)

		var syn ErrSyntax
		if assert.ErrorAs(err, &syn, entry.name) {
			assert.Equal(entry.lineno, syn.LineNo, entry.name)
		}
	}
}

func TestDecoder_Expression(t *testing.T) {
	assert := assert.New(t)

	dec := &Decoder{}
	dec.Predefine("LIMIT", 100)

	prog, err := dec.Parse(strings.NewReader("cpy $(LIMIT*2+1) a\njnz 1 $(-2)"))
	assert.NoError(err)
	assert.Equal(MakeArgImm(201), prog.Lines[0].Code.Args[0])
	assert.Equal(MakeArgImm(-2), prog.Lines[1].Code.Args[1])

	// A register name is never routed through expression evaluation.
	prog, err = (&Decoder{}).Load([]string{"cpy 1 a"})
	assert.NoError(err)
	assert.True(prog.Lines[0].Code.Args[1].IsReg)
}

func TestDecoder_ExpressionNotInteger(t *testing.T) {
	assert := assert.New(t)

	_, err := (&Decoder{}).Load([]string{"cpy $('text') a"})
	assert.Error(err)

	var expr ErrParseExpression
	assert.True(errors.As(err, &expr))
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)

	prog, err := Load([]string{"cpy 7 a", "inc a"})
	assert.NoError(err)
	assert.Equal(2, prog.Len())

	// Instructions() iterates in offset order.
	offsets := []int{}
	for pc, in := range prog.Instructions() {
		offsets = append(offsets, pc)
		assert.NotEmpty(in.Args)
	}
	assert.Equal([]int{0, 1}, offsets)
}
