package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/invdash/invdash/internal/config"
)

// logLine is one JSON line written by the rotating file sink.
type logLine struct {
	Level    string    `json:"level"`
	Severity string    `json:"severity"`
	Source   string    `json:"source"`
	Time     time.Time `json:"time"`
	Message  string    `json:"message"`
}

// String matches the activity log's "[SEVERITY] time - message" format.
func (l logLine) String() string {
	sev := l.Severity
	if sev == "" {
		sev = strings.ToUpper(l.Level)
	}
	return fmt.Sprintf("[%s] %s - %s", sev, l.Time.Format("2006-01-02 15:04:05"), l.Message)
}

func newLogsCmd() *cobra.Command {
	var tail int
	var all bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent activity from the log file",
		Long: `Print the activity entries recorded in the log file (log_file in the
config, --log-file or ` + config.EnvLogFile + `). Only entries carrying a severity,
the ones the dashboard shows in its activity log, are printed unless
--all is given.

Inside 'invdash dashboard' the logs command prints the live session log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := appConfig.LogFile
			if path == "" {
				return errors.New("no log file configured; set [logging] file, --log-file or " + config.EnvLogFile)
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()

			lines, err := readLogLines(f, all)
			if err != nil {
				return err
			}
			if tail > 0 && len(lines) > tail {
				lines = lines[len(lines)-tail:]
			}

			out := cmd.OutOrStdout()
			if ok, err := printStructured(out, lines); ok {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(out, l.String())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 50, "Print only the last N entries (0 for all)")
	cmd.Flags().BoolVar(&all, "all", false, "Include diagnostic lines without a severity")

	return cmd
}

// readLogLines decodes a JSON log, skipping lines that are not JSON.
func readLogLines(r io.Reader, all bool) ([]logLine, error) {
	var lines []logLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var l logLine
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			continue
		}
		if l.Severity == "" && !all {
			continue
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return lines, nil
}
