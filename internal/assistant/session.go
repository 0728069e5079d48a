package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mineradorx/relay/internal/logger"
)

var exitCommands = map[string]struct{}{
	"exit": {},
	"quit": {},
	"sair": {},
}

// IsExitCommand matches exit, quit and sair regardless of case
func IsExitCommand(line string) bool {
	_, ok := exitCommands[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

// Session is the read-answer loop for one chosen chat mode
type Session struct {
	asker  Asker
	in     *bufio.Scanner
	out    io.Writer
	logger *logger.StyledLogger
	title  string
}

func NewSession(asker Asker, in io.Reader, out io.Writer, title string, logger *logger.StyledLogger) *Session {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Session{
		asker:  asker,
		in:     scanner,
		out:    out,
		title:  title,
		logger: logger,
	}
}

// Run returns nil on an exit command or end of input
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "\n%s\nType 'exit' to leave.\n", s.title)

	turns := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, "\nYou: ")
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Fprintln(s.out)
			return nil
		}

		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if IsExitCommand(line) {
			s.logger.Debug("Session ended", "turns", turns)
			return nil
		}

		start := time.Now()
		answer := s.asker.Ask(ctx, line)
		turns++

		s.logger.Debug("Turn answered", "turn", turns, "passages", answer.Passages,
			"summarized", answer.Summarized, "failed", answer.Failed,
			"duration", time.Since(start).Round(time.Millisecond))

		fmt.Fprintf(s.out, "\nAssistant: %s\n", answer.Text)
	}
}
