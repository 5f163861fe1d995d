package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hongminglow/timecard-be/internal/client"
	"github.com/hongminglow/timecard-be/internal/models"
)

func newSignupCmd(rt *runtime) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.fillCredentials(&email, &password); err != nil {
				return err
			}
			if err := rt.app.Signup(cmd.Context(), username, email, password); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name (default: part of the email before @)")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.fillCredentials(&email, &password); err != nil {
				return err
			}
			if err := rt.app.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func (rt *runtime) fillCredentials(email, password *string) error {
	var err error
	if *email == "" {
		if *email, err = rt.prompter.line("Email"); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = rt.prompter.password(); err != nil {
			return err
		}
	}
	return nil
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newProfileCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "profile",
		Aliases: []string{"whoami"},
		Short:   "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.ShowSection(cmd.Context(), client.SectionProfile); err != nil {
				return err
			}
			renderProfile(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}
}

func newPersonCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Select, show or reset the current person",
	}

	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Select the person new entries are logged against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.app.SetPerson(cmd.Context(), args[0]); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current person and their entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entry for the current person and clear the selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			n, err := rt.app.ResetPerson(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}

	cmd.AddCommand(set, show, reset)
	return cmd
}

func newEntryCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entry",
		Aliases: []string{"entries"},
		Short:   "Add, list or delete time entries",
	}

	var hours, minutes int
	add := &cobra.Command{
		Use:   "add",
		Short: "Log time for the current person",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.app.AddEntry(cmd.Context(), hours, minutes); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}
	add.Flags().IntVar(&hours, "hours", 0, "whole hours")
	add.Flags().IntVar(&minutes, "minutes", 0, "minutes, 0-59")

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the current person's entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.app.RefreshEntries(cmd.Context(), filter); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}
	list.Flags().StringVar(&filter, "filter", "", "only show entries whose person name contains this text")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			if err := rt.app.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			renderDashboard(cmd.OutOrStdout(), rt.app)
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newSaveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save a summary of the current person's entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireSession(); err != nil {
				return err
			}
			saved, err := rt.app.SavePerson(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved data for %s (%s across %d entries)\n",
				saved.PersonName, models.FormatDuration(saved.TotalMinutes), len(saved.Entries))
			return nil
		},
	}
}

func newSavedCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "saved",
		Aliases: []string{"about"},
		Short:   "List saved person summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.ShowSection(cmd.Context(), client.SectionAbout); err != nil {
				return err
			}
			renderSaved(cmd.OutOrStdout(), rt.app.SavedSummaries())
			return nil
		},
	}
}
