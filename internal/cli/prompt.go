package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirmer returns a yes/no prompt reading from in. With assumeYes the
// prompt is skipped.
func confirmer(in io.Reader, out io.Writer, assumeYes bool) func(prompt string) bool {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		input = strings.ToLower(strings.TrimSpace(input))
		return input == "y" || input == "yes"
	}
}

// readLine prompts for one line of input, returning def when it is blank.
func readLine(reader *bufio.Reader, out io.Writer, prompt, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}
