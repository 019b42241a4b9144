package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/docvault/internal/client/app"
	"github.com/dmitrijs2005/docvault/internal/client/config"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type App struct {
	config *config.Config
	core   *app.App
	in     io.Reader
	out    io.Writer
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	core, err := app.New(c, log)
	if err != nil {
		return nil, err
	}
	return &App{config: c, core: core, in: os.Stdin, out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	return a.core.Session.Authenticated()
}

// status is shown in the prompt: the user's email and the active document.
func (a *App) status() string {
	s := ""
	if u := a.core.Session.Snapshot().User; u != nil && a.isLoggedIn() {
		s = u.Email
	}
	if d, ok := a.core.Documents.Active(); ok {
		if s != "" {
			s += " "
		}
		s += "[" + d.Name + "]"
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

// Run starts the core, runs the REPL until the user exits and then closes
// the core, writing any pending state.
func (a *App) Run(ctx context.Context) error {
	res, err := a.core.Start(ctx)
	if err != nil {
		return err
	}
	// Commands are routed on the session outcome, so it must be settled.
	if err := a.core.Session.WaitChecked(ctx); err != nil {
		_ = a.core.Close(context.WithoutCancel(ctx))
		return err
	}

	fmt.Fprintln(a.out, "Welcome to docvault (type 'help' for commands)")
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "Session restored.")
	}
	if n := len(res.Restore.Restored) + len(res.Restore.Reprocessed); n > 0 {
		fmt.Fprintf(a.out, "Restored %d document(s).\n", n)
	}
	if n := len(res.Restore.Failed); n > 0 {
		fmt.Fprintf(a.out, "%d document(s) could not be restored; see 'list'.\n", n)
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(a.in))

	return a.core.Close(context.WithoutCancel(ctx))
}
