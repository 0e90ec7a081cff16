package progress

import (
	"fmt"
	"io"
	"os"
	"time"
)

// AnimateCounters shows each label counting up through its frames, one
// frame per interval, and finishes on the final values. Off a terminal
// only the final values are printed.
func AnimateCounters(out io.Writer, labels []string, frames [][]int64, interval time.Duration, format func(int64) string) {
	if format == nil {
		format = func(v int64) string { return fmt.Sprint(v) }
	}

	f, _ := out.(*os.File)
	if !IsTerminal(f) {
		for i, label := range labels {
			fmt.Fprintf(out, "%-20s %s\n", label+":", format(last(frames[i])))
		}
		return
	}

	steps := 0
	for _, fr := range frames {
		if len(fr) > steps {
			steps = len(fr)
		}
	}

	for s := 0; s < steps; s++ {
		if s > 0 {
			// move back up over the lines drawn last frame
			fmt.Fprintf(out, "\033[%dA", len(labels))
		}
		for i, label := range labels {
			v := frameAt(frames[i], s)
			fmt.Fprintf(out, "\r\033[K%-20s %s\n", label+":", format(v))
		}
		if s < steps-1 {
			time.Sleep(interval)
		}
	}
}

func frameAt(fr []int64, s int) int64 {
	if len(fr) == 0 {
		return 0
	}
	if s >= len(fr) {
		return fr[len(fr)-1]
	}
	return fr[s]
}

func last(fr []int64) int64 {
	return frameAt(fr, len(fr))
}
