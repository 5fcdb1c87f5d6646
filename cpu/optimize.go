package cpu

import (
	"fmt"
)

// FusionKind selects the closed-form update of a fused idiom span.
type FusionKind int

const (
	FUSE_ADD = FusionKind(0) // add
	FUSE_MUL = FusionKind(1) // mul
)

// Fusion is one recognized idiom span: the number of instructions it covers
// and the operands captured during matching.
//
// FUSE_ADD covers 3 instructions and applies Dst += Tmp; Tmp = 0.
// FUSE_MUL covers 6 instructions and applies Dst += Src*Outer; Tmp = 0;
// Outer = 0.
type Fusion struct {
	Skip  int        // Instructions covered by the span.
	Kind  FusionKind // Closed-form update selector.
	Dst   int        // Accumulator register.
	Src   Arg        // Multiplicand operand (FUSE_MUL only).
	Outer int        // Outer counter register (FUSE_MUL only).
	Tmp   int        // Inner counter register; the addend for FUSE_ADD.
}

// String returns the fused update in assignment form.
func (fuse Fusion) String() string {
	switch fuse.Kind {
	case FUSE_ADD:
		return fmt.Sprintf("fused: %v += %v; %v = 0",
			regName[fuse.Dst], regName[fuse.Tmp], regName[fuse.Tmp])
	case FUSE_MUL:
		return fmt.Sprintf("fused: %v += %v * %v; %v = 0; %v = 0",
			regName[fuse.Dst], fuse.Src, regName[fuse.Outer],
			regName[fuse.Tmp], regName[fuse.Outer])
	}

	return fmt.Sprintf("fused: kind(%d)", int(fuse.Kind))
}

// apply performs the fused register update in O(1).
func (cpu *Cpu) apply(fuse Fusion) {
	switch fuse.Kind {
	case FUSE_ADD:
		cpu.Reg[fuse.Dst] += cpu.Reg[fuse.Tmp]
		cpu.Reg[fuse.Tmp] = 0
	case FUSE_MUL:
		cpu.Reg[fuse.Dst] += cpu.value(fuse.Src) * cpu.Reg[fuse.Outer]
		cpu.Reg[fuse.Tmp] = 0
		cpu.Reg[fuse.Outer] = 0
	}
}

// reg returns the register index of an operand, or -1 when it is not a
// plain register.
func reg(in Instruction, n int) int {
	if n >= len(in.Args) || !in.Args[n].IsReg {
		return -1
	}

	return in.Args[n].Val
}

// isImm reports whether operand n of an instruction is the immediate value.
func isImm(in Instruction, n int, value int) bool {
	return n < len(in.Args) && !in.Args[n].IsReg && in.Args[n].Val == value
}

// matchMul matches the 6-instruction multiply-accumulate idiom at a window:
//
//	cpy src tmp
//	inc dst
//	dec tmp
//	jnz tmp -2
//	dec outer
//	jnz outer -5
//
// All register roles must be distinct registers, so the closed form is exact
// for any starting register values.
func matchMul(win []Instruction) (fuse Fusion, ok bool) {
	if win[0].Op != OP_CPY || win[1].Op != OP_INC ||
		win[2].Op != OP_DEC || win[3].Op != OP_JNZ ||
		win[4].Op != OP_DEC || win[5].Op != OP_JNZ {
		return
	}
	if !isImm(win[3], 1, -2) || !isImm(win[5], 1, -5) {
		return
	}

	tmp := reg(win[0], 1)
	dst := reg(win[1], 0)
	outer := reg(win[4], 0)
	src := win[0].Args[0]

	if tmp < 0 || dst < 0 || outer < 0 {
		return
	}
	if reg(win[2], 0) != tmp || reg(win[3], 0) != tmp || reg(win[5], 0) != outer {
		return
	}
	if tmp == dst || tmp == outer || dst == outer {
		return
	}
	if src.IsReg && (src.Val == tmp || src.Val == dst || src.Val == outer) {
		return
	}

	fuse = Fusion{Skip: 6, Kind: FUSE_MUL, Dst: dst, Src: src, Outer: outer, Tmp: tmp}
	ok = true

	return
}

// matchAdd matches the 3-instruction addition idiom at a window, in either
// operand order:
//
//	inc dst        dec tmp
//	dec tmp   or   inc dst
//	jnz tmp -2     jnz tmp -2
func matchAdd(win []Instruction) (fuse Fusion, ok bool) {
	if win[2].Op != OP_JNZ || !isImm(win[2], 1, -2) {
		return
	}
	cond := reg(win[2], 0)
	if cond < 0 {
		return
	}

	var dst, tmp int
	switch {
	case win[0].Op == OP_INC && win[1].Op == OP_DEC:
		dst = reg(win[0], 0)
		tmp = reg(win[1], 0)
	case win[0].Op == OP_DEC && win[1].Op == OP_INC:
		tmp = reg(win[0], 0)
		dst = reg(win[1], 0)
	default:
		return
	}

	if dst < 0 || tmp != cond || dst == tmp {
		return
	}

	fuse = Fusion{Skip: 3, Kind: FUSE_ADD, Dst: dst, Tmp: tmp}
	ok = true

	return
}

// findFusions scans the instruction store left to right for idiom spans.
// Matched spans never overlap; a window that matches only partially is left
// unfused and executes instruction by instruction. The store is the only
// input, so the scan is safely re-runnable after any mutation.
func findFusions(code []Instruction) (fused map[int]Fusion) {
	fused = map[int]Fusion{}

	i := 0
	for i < len(code) {
		if i+6 <= len(code) {
			if fuse, ok := matchMul(code[i : i+6]); ok {
				fused[i] = fuse
				i += fuse.Skip
				continue
			}
		}
		if i+3 <= len(code) {
			if fuse, ok := matchAdd(code[i : i+3]); ok {
				fused[i] = fuse
				i += fuse.Skip
				continue
			}
		}
		i++
	}

	return
}
