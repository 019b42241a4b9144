package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/chat"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/services"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dustin/go-humanize"
)

// getPassword is an indirection used to facilitate testing.
var getPassword = GetPassword

var (
	errUsage       = errors.New("usage")
	errNoActive    = errors.New("no active document; use 'open <id>' or 'upload'")
	errNotReady    = errors.New("document is not ready")
	errAmbiguousID = errors.New("ambiguous document id")
)

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

// Login authenticates the email given as the first argument. The password
// is read without echo and wiped before returning.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("login <email>")
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.core.Auth.Login(ctx, args[0], string(password))
	if err != nil {
		if msg := a.core.Session.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Name)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.core.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u := a.core.Session.Snapshot().User
	if u == nil {
		fmt.Fprintln(a.out, "unknown user")
		return nil
	}
	fmt.Fprintf(a.out, "%s <%s> (%s)\n", u.Name, u.Email, u.Role)
	return nil
}

// Upload imports every file named in args. Unreadable or rejected files are
// reported and skipped.
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("upload <path...>")
	}

	files := make([]services.UploadFile, 0, len(args))
	for _, p := range args {
		data, modified, err := filex.ReadFile(p, a.config.MaxUploadSize)
		if errors.Is(err, filex.ErrTooLarge) {
			fmt.Fprintf(a.out, "%q exceeds the %s limit.\n", filepath.Base(p), humanize.IBytes(uint64(a.config.MaxUploadSize)))
			continue
		}
		if err != nil {
			fmt.Fprintf(a.out, "%s: %v\n", p, err)
			continue
		}
		files = append(files, services.UploadFile{
			Name:         filepath.Base(p),
			LastModified: modified,
			Data:         data,
		})
	}

	for _, r := range a.core.Docs.Upload(ctx, files) {
		switch {
		case r.Notice != "":
			fmt.Fprintln(a.out, r.Notice)
		case r.Err != nil:
			fmt.Fprintf(a.out, "%s: %v\n", r.Name, r.Err)
		case r.Document != nil && r.Document.Status == models.StatusError:
			fmt.Fprintf(a.out, "%s: %s\n", r.Name, r.Document.Error)
		case r.Document != nil:
			fmt.Fprintf(a.out, "%s: %s, %d page(s) [%s]\n", r.Name, r.Document.Status, r.Document.PageCount, shortID(r.ID))
		}
	}
	return nil
}

func (a *App) List(ctx context.Context) error {
	docs := a.core.Documents.List()
	if len(docs) == 0 {
		fmt.Fprintln(a.out, "No documents.")
		return nil
	}
	active, _ := a.core.Documents.Active()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSTATUS\tPAGES\tSIZE\tUPLOADED")
	for _, d := range docs {
		mark := ""
		if active != nil && active.ID == d.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", mark, shortID(d.ID), d.Name, d.Status, d.PageCount,
			humanize.IBytes(uint64(d.Size)), humanize.Time(time.UnixMilli(d.UploadedAt)))
	}
	return tw.Flush()
}

// Open makes the document matching args[0] (full id or unique prefix) active.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <id>")
	}
	id, err := a.resolveID(args[0])
	if err != nil {
		return err
	}
	if err := a.core.Documents.SetActive(ctx, id); err != nil {
		return err
	}
	d, _ := a.core.Documents.Get(id)
	fmt.Fprintf(a.out, "Opened %s.\n", d.Name)
	return nil
}

func (a *App) Info(ctx context.Context) error {
	d, ok := a.core.Documents.Active()
	if !ok {
		return errNoActive
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", d.Name)
	fmt.Fprintf(tw, "ID:\t%s\n", d.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", d.Status)
	fmt.Fprintf(tw, "Size:\t%s\n", humanize.IBytes(uint64(d.Size)))
	if d.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", d.Error)
	}
	if m := d.Metadata; m != nil {
		fmt.Fprintf(tw, "Pages:\t%d\n", m.PageCount)
		for _, f := range []struct {
			label string
			v     *string
		}{
			{"Title", m.Title}, {"Author", m.Author}, {"Subject", m.Subject}, {"Keywords", m.Keywords},
			{"Creator", m.Creator}, {"Producer", m.Producer}, {"Created", m.CreationDate},
			{"Modified", m.ModDate}, {"PDF version", m.PDFVersion},
		} {
			if f.v != nil {
				fmt.Fprintf(tw, "%s:\t%s\n", f.label, *f.v)
			}
		}
	}
	return tw.Flush()
}

// Ask streams the answer to a question about the active document. An
// interrupt aborts the answer without committing it.
func (a *App) Ask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("ask <question>")
	}
	d, ok := a.core.Documents.Active()
	if !ok {
		return errNoActive
	}
	if d.Status != models.StatusReady {
		return fmt.Errorf("%s: %w", d.Name, errNotReady)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := a.core.ChatService.Send(ctx, d.ID, strings.Join(args, " "), func(chunk string) {
		fmt.Fprint(a.out, chunk)
	})
	fmt.Fprintln(a.out)
	if errors.Is(err, chat.ErrAborted) {
		fmt.Fprintln(a.out, "(aborted)")
		return nil
	}
	if err != nil {
		return errors.New("failed to get a response, please try again")
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	d, ok := a.core.Documents.Active()
	if !ok {
		return errNoActive
	}
	msgs := a.core.Chat.Messages(d.ID)
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "No messages yet.")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(a.out, "[%s] %s: %s\n", time.UnixMilli(m.Timestamp).Format(time.Kitchen), m.Role, m.Content)
	}
	return nil
}

func (a *App) Clear(ctx context.Context) error {
	d, ok := a.core.Documents.Active()
	if !ok {
		return errNoActive
	}
	a.core.Chat.ClearConversation(d.ID)
	fmt.Fprintln(a.out, "Conversation cleared.")
	return nil
}

// Remove deletes the document named by args[0], or the active one.
func (a *App) Remove(ctx context.Context, args []string) error {
	var id string
	switch len(args) {
	case 0:
		d, ok := a.core.Documents.Active()
		if !ok {
			return errNoActive
		}
		id = d.ID
	case 1:
		var err error
		if id, err = a.resolveID(args[0]); err != nil {
			return err
		}
	default:
		return usage("remove [id]")
	}

	if err := a.core.RemoveDocument(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Removed.")
	return nil
}

func (a *App) resolveID(prefix string) (string, error) {
	var match string
	for _, d := range a.core.Documents.List() {
		if d.ID == prefix {
			return d.ID, nil
		}
		if strings.HasPrefix(d.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%s: %w", prefix, errAmbiguousID)
			}
			match = d.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("document %s: %w", prefix, common.ErrorNotFound)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
