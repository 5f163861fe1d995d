// Package cli is the tcctl command line front end. Each invocation restores
// the stored session, performs one action and prints the resulting view.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hongminglow/timecard-be/internal/client"
)

// DefaultServerURL is used when neither --server nor TIMECARD_URL is set.
const DefaultServerURL = "http://localhost:5000"

type runtime struct {
	serverURL string
	statePath string
	app       *client.App
	prompter  *prompter
}

// NewRootCmd creates the top-level "tcctl" command.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "tcctl",
		Short:         "Log and summarise time per person against a timecard server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.serverURL, "server", envOr("TIMECARD_URL", DefaultServerURL), "timecard server base URL")
	root.PersistentFlags().StringVar(&rt.statePath, "state", "", "session file (default: <user config dir>/timecard/session.json)")

	root.AddCommand(
		newSignupCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newProfileCmd(rt),
		newPersonCmd(rt),
		newEntryCmd(rt),
		newSaveCmd(rt),
		newSavedCmd(rt),
	)
	return root
}

func (rt *runtime) init(cmd *cobra.Command) error {
	path := rt.statePath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		path = filepath.Join(dir, "timecard", "session.json")
	}
	store, err := client.OpenFileStorage(path)
	if err != nil {
		return err
	}
	rt.app = client.NewApp(client.NewAPI(rt.serverURL, nil), client.NewSessionState(store))
	rt.prompter = newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	// A failed entry fetch still leaves the session restored; commands that
	// need the server will report their own errors.
	if err := rt.app.Bootstrap(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), styleDim.Render("warning: "+err.Error()))
	}
	return nil
}

// requireSession fails fast for commands that only make sense when signed in.
func (rt *runtime) requireSession() error {
	if rt.app.Section() == client.SectionAnonymous {
		return fmt.Errorf("%w: run `tcctl login` or `tcctl signup`", client.ErrNotAuthenticated)
	}
	return nil
}

// Execute runs the root command and reports errors on stderr.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), styleError.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
