package userinteraction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/fatih/color"

	"kagi-bot/internal/application/port/input"
	"kagi-bot/internal/application/port/output"
	"kagi-bot/internal/domain/entity"
)

const consolePlatform = "console"

type ConsoleHost struct {
	dispatcher input.CommandDispatcher
	logger     output.LoggerPort
	session    entity.Session
	in         *bufio.Reader
	out        io.Writer
}

func NewConsoleHost(dispatcher input.CommandDispatcher, logger output.LoggerPort, username string) *ConsoleHost {
	return NewConsoleHostWithIO(dispatcher, logger, username, os.Stdin, os.Stdout)
}

func NewConsoleHostWithIO(dispatcher input.CommandDispatcher, logger output.LoggerPort, username string, in io.Reader, out io.Writer) *ConsoleHost {
	if username == "" {
		username = currentUsername()
	}

	return &ConsoleHost{
		dispatcher: dispatcher,
		logger:     logger.WithField("platform", consolePlatform),
		session: entity.Session{
			UserID:   username,
			Username: username,
			Platform: consolePlatform,
		},
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Run reads one command per line until EOF, "exit" or ctx is done.
func (h *ConsoleHost) Run(ctx context.Context) error {
	h.showBanner()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(h.out, "\n> ")
		line, err := h.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read user input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
		case "exit", "quit":
			return nil
		case "help":
			h.showBanner()
		default:
			h.handle(ctx, line)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (h *ConsoleHost) handle(ctx context.Context, line string) {
	reply, err := h.dispatcher.Dispatch(ctx, h.session, line)
	if err != nil {
		h.logger.Warn("Command rejected", "line", line, "error", err)
		red := color.New(color.FgRed)
		red.Fprintf(h.out, "❌ %v\n", err)
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintln(h.out, reply)
}

func (h *ConsoleHost) showBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(h.out, "━━━ Commands ━━━")

	dim := color.New(color.Faint)
	for _, cmd := range h.dispatcher.Commands() {
		dim.Fprintf(h.out, "  %s  %s\n", cmd.Usage, cmd.Description)
	}
	dim.Fprintln(h.out, "  exit  quit")
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "console"
}
