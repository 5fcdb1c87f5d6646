// Package cpu implements the Assembunny virtual machine.
//
// The machine consists of a program counter, four signed integer registers
// (a-d), and a mutable instruction store executing the fixed instruction set
// cpy, inc, dec, jnz, tgl, and out. The tgl instruction rewrites the opcode
// of another instruction in place, so the store is owned by a single Cpu and
// re-cloned from the decoded Program at every reset.
//
// Two arithmetic loop idioms (bounded increment, bounded multiply-accumulate)
// are recognized structurally and fused into closed-form register updates.
// The fusion map is derived data: it is recomputed from the instruction store
// after every tgl, never patched incrementally.
package cpu
