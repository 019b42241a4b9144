package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Upload(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Info(ctx context.Context) error
	Ask(ctx context.Context, args []string) error
	History(ctx context.Context) error
	Clear(ctx context.Context) error
	Remove(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: login <email>, exit"
	helpLoggedIn  = "Available commands: upload <path...>, (l)ist, open <id>, info, ask <question>, history, clear, remove [id], whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the docvault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit". Document and chat commands
// require a logged-in session.
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("docvault %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}
			continue
		case "login":
			report(a.Login(ctx, args))
			continue
		}

		if !a.isLoggedIn() {
			if isCommand(cmd) {
				printlnFn("Please log in first.")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "logout":
			report(a.Logout(ctx))
		case "whoami":
			report(a.WhoAmI(ctx))
		case "upload":
			report(a.Upload(ctx, args))
		case "l", "list":
			report(a.List(ctx))
		case "open":
			report(a.Open(ctx, args))
		case "info":
			report(a.Info(ctx))
		case "ask":
			report(a.Ask(ctx, args))
		case "history":
			report(a.History(ctx))
		case "clear":
			report(a.Clear(ctx))
		case "remove", "rm":
			report(a.Remove(ctx, args))
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func isCommand(cmd string) bool {
	switch cmd {
	case "logout", "whoami", "upload", "l", "list", "open", "info", "ask", "history", "clear", "remove", "rm":
		return true
	}
	return false
}

func report(err error) {
	if err != nil {
		printlnFn("error:", err)
	}
}
