package cpu

import (
	"bufio"
	"io"
	"log"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Decoder translates Assembunny source text into a Program. The zero value
// is a usable decoder; Predefine may supply named constants for $(...)
// operand expressions before parsing.
type Decoder struct {
	Verbose bool // If set, verbosely logs the decoded instructions.

	predefine map[string]int
}

// Predefine defines a named constant visible to $(...) operand expressions.
func (dec *Decoder) Predefine(name string, value int) {
	if dec.predefine == nil {
		dec.predefine = map[string]int{name: value}
	} else {
		dec.predefine[name] = value
	}
}

// Parse decodes a whole source stream into a Program. Blank lines and lines
// that do not begin with a known mnemonic are skipped; a malformed operand
// is fatal and aborts the whole load.
func (dec *Decoder) Parse(in io.Reader) (prog *Program, err error) {
	prog = &Program{}

	scanner := bufio.NewScanner(in)
	lineno := 0
	for scanner.Scan() {
		lineno++
		text := scanner.Text()

		words := strings.Fields(text)
		if len(words) == 0 {
			continue
		}

		op, ok := opMap[words[0]]
		if !ok {
			// Comment or unrecognized line.
			continue
		}

		var code Instruction
		code, err = dec.parseLine(op, words[1:])
		if err != nil {
			prog = nil
			err = ErrSyntax{LineNo: lineno, Line: text, Err: err}
			return
		}

		if dec.Verbose {
			log.Printf("decode: %3d: %v", len(prog.Lines), code)
		}

		prog.Lines = append(prog.Lines, Line{
			LineNo: lineno,
			Words:  words,
			Code:   code,
		})
	}
	err = scanner.Err()
	if err != nil {
		prog = nil
	}

	return
}

// Load decodes a slice of source lines into a Program.
func (dec *Decoder) Load(lines []string) (prog *Program, err error) {
	return dec.Parse(strings.NewReader(strings.Join(lines, "\n")))
}

// Load decodes a slice of source lines with a zero-value Decoder.
func Load(lines []string) (prog *Program, err error) {
	dec := &Decoder{}
	return dec.Load(lines)
}

// parseLine decodes the operand words of a single instruction.
func (dec *Decoder) parseLine(op Opcode, words []string) (code Instruction, err error) {
	arity := opArity[op]
	if len(words) < arity {
		err = ErrOperandMissing
		return
	}
	if len(words) > arity {
		err = ErrOperandExtra
		return
	}

	code.Op = op
	for _, word := range words {
		var arg Arg
		arg, err = dec.parseArg(word)
		if err != nil {
			return
		}
		code.Args = append(code.Args, arg)
	}

	return
}

// parseArg decodes one operand token: a register name, a signed decimal
// integer, or a $(...) compile-time expression.
func (dec *Decoder) parseArg(word string) (arg Arg, err error) {
	if index, ok := regMap[word]; ok {
		arg = MakeArgReg(index)
		return
	}

	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		var value int
		value, err = dec.parenEval(word[2 : len(word)-1])
		if err != nil {
			return
		}
		arg = MakeArgImm(value)
		return
	}

	value, verr := strconv.Atoi(word)
	if verr != nil {
		err = ErrParseValue(word)
		return
	}
	arg = MakeArgImm(value)

	return
}

// parenEval does decode-time $(...) evaluations.
func (dec *Decoder) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, val := range dec.predefine {
		pred[key] = starlark.MakeInt(val)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)

	return
}
