// Package repl drives the dialog controller from a terminal, for local
// development without a bot token.
package repl

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/louisbranch/cardpath/internal/catalog"
	"github.com/louisbranch/cardpath/internal/dialog"
	apperrors "github.com/louisbranch/cardpath/internal/errors"
	entrypoint "github.com/louisbranch/cardpath/internal/platform/cmd"
	"github.com/louisbranch/cardpath/internal/storage/memory"
)

// Config holds repl command configuration.
type Config struct {
	UserID int64 `env:"CARDPATH_REPL_USER_ID" envDefault:"1"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.Int64Var(&cfg.UserID, "user-id", cfg.UserID, "user id for the local session")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts an interactive session on stdin/stdout.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceREPL, func(ctx context.Context) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		ctrl, err := dialog.New(dialog.Config{
			Catalog:  cat,
			Sessions: memory.NewStore(),
		})
		if err != nil {
			return err
		}
		return loop(ctx, ctrl, cfg.UserID, in, out)
	})
}

// loop renders menus and turns numbered input back into dialog events.
func loop(ctx context.Context, ctrl *dialog.Controller, userID int64, in io.Reader, out io.Writer) error {
	res, err := ctrl.Handle(ctx, dialog.Event{UserID: userID, Kind: dialog.KindStart})
	if err != nil {
		return err
	}
	render(out, res)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" {
			return nil
		}

		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > len(res.Menu.Actions) {
			fmt.Fprintf(out, "pick a number between 1 and %d, or q to quit\n", len(res.Menu.Actions))
			continue
		}
		ev, err := dialog.ParseAction(userID, res.Menu.Actions[choice-1].Token)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		next, err := ctrl.Handle(ctx, ev)
		if err != nil {
			if apperrors.Recoverable(err) {
				fmt.Fprintf(out, "%v\n", err)
				continue
			}
			return err
		}
		res = next
		render(out, res)
		if len(res.Menu.Actions) == 0 {
			return nil
		}
	}
	return scanner.Err()
}

func render(out io.Writer, res dialog.Result) {
	fmt.Fprintf(out, "\n%s\n", res.Menu.Body)
	for _, def := range res.Unlocked {
		fmt.Fprintf(out, "** Achievement unlocked: %s **\n", def.DisplayName)
	}
	for i, action := range res.Menu.Actions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, action.Label)
	}
	for _, link := range res.Menu.Links {
		fmt.Fprintf(out, "  -> %s: %s\n", link.Label, link.URL)
	}
}
