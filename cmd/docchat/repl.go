package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/docchat-dev/docchat/pkg/chat"
	"github.com/docchat-dev/docchat/pkg/config"
	"github.com/docchat-dev/docchat/pkg/llm/provider"
)

var errExit = errors.New("exit requested")

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, r *repl, args []string) error
}

type repl struct {
	cfg        *config.Config
	controller *chat.Controller
	commands   map[string]command
}

func runREPL(ctx context.Context, cfg *config.Config, controller *chat.Controller) error {
	r := &repl{cfg: cfg, controller: controller}
	r.commands = commandTable()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("[%s] you: ", r.controller.Current().Name))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return r.shutdown()
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if err := r.dispatch(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				return r.shutdown()
			}
			fmt.Printf("error: %v\n", err)
		}
	}
}

// dispatch routes one input line. A panic in a handler is logged and
// the loop continues; the session keeps whatever was already saved.
func (r *repl) dispatch(ctx context.Context, input string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("unexpected error handling %q: %v", input, rec)
			err = fmt.Errorf("internal error, see log")
		}
	}()

	if !strings.HasPrefix(input, "/") {
		return r.ask(ctx, input)
	}

	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmd, ok := r.commands[name]
	if !ok {
		fmt.Printf("unknown command %s, type /help for a list\n", name)
		return nil
	}
	if len(args) < cmd.minArgs {
		fmt.Printf("usage: %s\n", cmd.usage)
		return nil
	}

	return cmd.run(ctx, r, args)
}

func (r *repl) ask(ctx context.Context, question string) error {
	answer, err := r.controller.Ask(ctx, question)
	if err != nil {
		if errors.Is(err, chat.ErrOverBudget) {
			fmt.Println("That question would exceed the token budget. Try /clear or a shorter question.")
			return nil
		}
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			fmt.Printf("The completion service failed (%s). Your question was not recorded; try again.\n", perr.Code)
			return nil
		}
		return err
	}

	fmt.Printf("assistant: %s\n", answer)
	return nil
}

func (r *repl) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), interruptTimeout)
	defer cancel()

	if err := r.controller.Persist(ctx); err != nil {
		log.Printf("warning: could not save session on exit: %v", err)
	}
	fmt.Println("Session saved. Bye!")
	return nil
}

func commandTable() map[string]command {
	return map[string]command{
		"/readpdf": {
			usage:   "/readpdf <file>",
			help:    "summarize a PDF and attach it to the conversation",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				path := strings.Join(args, " ")
				if !filepath.IsAbs(path) && r.cfg.PDFDir != "" {
					if candidate := filepath.Join(r.cfg.PDFDir, path); fileExists(candidate) {
						path = candidate
					}
				}

				fmt.Println("Summarizing, this can take a moment...")
				rec, err := r.controller.IngestPDF(ctx, path)
				if err != nil {
					return err
				}
				fmt.Printf("Summary of %q is now active context (id %s).\n", rec.Metadata.OriginalFilename, rec.ID)
				return nil
			},
		},
		"/newsession": {
			usage:   "/newsession <name>",
			help:    "create a session and switch to it",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				if err := r.controller.NewSession(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Now in session %q.\n", args[0])
				return nil
			},
		},
		"/sessions": {
			usage: "/sessions",
			help:  "list saved sessions",
			run: func(ctx context.Context, r *repl, args []string) error {
				names, err := r.controller.ListSessions(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Println("No saved sessions.")
					return nil
				}
				current := r.controller.Current().Name
				for _, name := range names {
					marker := " "
					if name == current {
						marker = "*"
					}
					fmt.Printf(" %s %s\n", marker, name)
				}
				return nil
			},
		},
		"/loadsession": {
			usage:   "/loadsession <name>",
			help:    "switch to a saved session",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				if err := r.controller.LoadSession(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Now in session %q.\n", args[0])
				return nil
			},
		},
		"/deletesession": {
			usage:   "/deletesession <name>",
			help:    "delete a saved session (not the current one)",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				if err := r.controller.DeleteSession(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Session %q deleted.\n", args[0])
				return nil
			},
		},
		"/summaries": {
			usage: "/summaries",
			help:  "list stored summaries, newest first",
			run: func(ctx context.Context, r *repl, args []string) error {
				records, err := r.controller.ListSummaries()
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No stored summaries.")
					return nil
				}
				for i, rec := range records {
					fmt.Printf(" %d. %s  %s  (%s)\n", i+1, rec.ID, rec.Metadata.OriginalFilename, rec.Timestamp)
				}
				return nil
			},
		},
		"/loadsummary": {
			usage:   "/loadsummary <id or index>",
			help:    "attach a stored summary to the conversation",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				rec, err := r.controller.LoadSummary(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Summary of %q is now active context.\n", rec.Metadata.OriginalFilename)
				return nil
			},
		},
		"/deletesummary": {
			usage:   "/deletesummary <id or index>",
			help:    "delete a stored summary",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				if err := r.controller.DeleteSummary(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("Summary deleted.")
				return nil
			},
		},
		"/clear": {
			usage: "/clear",
			help:  "reset the conversation context",
			run: func(ctx context.Context, r *repl, args []string) error {
				r.controller.ClearContext()
				fmt.Println("Context cleared.")
				return nil
			},
		},
		"/export": {
			usage:   "/export <name>",
			help:    "export the conversation to a PDF",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				path, err := r.controller.ExportChat(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Conversation exported to %s\n", path)
				return nil
			},
		},
		"/exports": {
			usage: "/exports [session]",
			help:  "list exported PDFs",
			run: func(ctx context.Context, r *repl, args []string) error {
				sessionName := ""
				if len(args) > 0 {
					sessionName = args[0]
				}
				names, err := r.controller.ListExports(sessionName)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Println("No exports.")
					return nil
				}
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
				return nil
			},
		},
		"/loadexport": {
			usage:   "/loadexport <name>",
			help:    "show where an exported PDF lives",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				path, err := r.controller.ExportPath(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Export is at %s\n", path)
				return nil
			},
		},
		"/deleteexport": {
			usage:   "/deleteexport <name>",
			help:    "delete an exported PDF",
			minArgs: 1,
			run: func(ctx context.Context, r *repl, args []string) error {
				if err := r.controller.DeleteExport(args[0]); err != nil {
					return err
				}
				fmt.Println("Export deleted.")
				return nil
			},
		},
		"/help": {
			usage: "/help",
			help:  "show this help",
			run: func(ctx context.Context, r *repl, args []string) error {
				fmt.Println("Ask a question by typing it, or use a command:")
				for _, name := range commandOrder {
					cmd := r.commands[name]
					fmt.Printf("  %-28s %s\n", cmd.usage, cmd.help)
				}
				return nil
			},
		},
		"/exit": {
			usage: "/exit",
			help:  "save the session and quit",
			run: func(ctx context.Context, r *repl, args []string) error {
				return errExit
			},
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// commandOrder fixes the /help listing order.
var commandOrder = []string{
	"/readpdf", "/newsession", "/sessions", "/loadsession", "/deletesession",
	"/summaries", "/loadsummary", "/deletesummary", "/clear",
	"/export", "/exports", "/loadexport", "/deleteexport",
	"/help", "/exit",
}
