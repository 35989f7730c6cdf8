package machine

import (
	"fmt"
	"io"
)

// reporter writes test status lines gated by a verbosity level.
// Level 0 lines are always written.
type reporter struct {
	w     io.Writer
	level int
}

func (r reporter) printf(level int, format string, args ...interface{}) {
	if r.w == nil || level > r.level {
		return
	}
	fmt.Fprintf(r.w, format+"\n", args...)
}
