package emulator

import (
	"fmt"
	"io"
)

// Tape records the stream of out instruction values. When Output is
// attached, each value is also rendered to it as it arrives, so a clock
// program produces a visible 0101... digit stream.
type Tape struct {
	Output io.Writer // Optional sink for rendered values.
	Values []int     // Every value sent since the last rewind.
}

// Rewind clears the recorded output stream.
func (tape *Tape) Rewind() {
	if len(tape.Values) > 0 {
		tape.Values = tape.Values[:0]
	}
}

// Send appends one output value, rendering it to Output when attached.
func (tape *Tape) Send(value int) (err error) {
	tape.Values = append(tape.Values, value)

	if tape.Output != nil {
		_, err = fmt.Fprintf(tape.Output, "%d", value)
	}

	return
}
