package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xaenox/scribly/internal/api"
	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/notes"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all your notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			g, err := a.session(ctx)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), notes.Derive(g.Store().Notes(), ""), "")
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Show notes whose title or content contains the query, with title suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			g, err := a.session(ctx)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return a.print(cmd.OutOrStdout(), notes.Derive(g.Store().Notes(), query), query)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var draft models.Draft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			g, err := a.session(ctx)
			if err != nil {
				return err
			}
			created, err := g.Create(ctx, draft)
			if err != nil {
				return a.explain(err)
			}
			return a.printNote(cmd.OutOrStdout(), created)
		},
	}

	cmd.Flags().StringVarP(&draft.Title, "title", "t", "", "Note title")
	cmd.Flags().StringVarP(&draft.Content, "content", "c", "", "Note content")
	cmd.Flags().BoolVar(&draft.IsPublic, "public", false, "Make the note public")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		title, content string
		public         bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a note; flags that are not given keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			g, err := a.session(ctx)
			if err != nil {
				return err
			}
			current, ok := g.Store().Get(args[0])
			if !ok {
				return fmt.Errorf("note %s not found", args[0])
			}

			draft := models.DraftFrom(current)
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			if cmd.Flags().Changed("content") {
				draft.Content = content
			}
			if cmd.Flags().Changed("public") {
				draft.IsPublic = public
			}

			updated, err := g.Update(ctx, draft)
			if err != nil {
				return a.explain(err)
			}
			return a.printNote(cmd.OutOrStdout(), updated)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New content")
	cmd.Flags().BoolVar(&public, "public", false, "Visibility, use --public=false to make it private")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			g, err := a.session(ctx)
			if err != nil {
				return err
			}
			if _, ok := g.Store().Get(args[0]); !ok {
				return fmt.Errorf("note %s not found", args[0])
			}
			if err := g.Delete(ctx, args[0]); err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var creds models.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			token, err := a.client.Login(ctx, creds)
			if err != nil {
				return errors.New("login failed: " + api.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the remote session; unset SCRIBLY_TOKEN afterwards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.client.Logout(ctx, a.token); err != nil {
				return a.explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) print(w io.Writer, view notes.View, query string) error {
	if a.asJSON {
		return encodeJSON(w, struct {
			Query       string        `json:"query,omitempty"`
			Notes       []models.Note `json:"notes"`
			Suggestions []string      `json:"suggestions,omitempty"`
		}{query, view.Notes, view.Suggestions})
	}

	if query != "" && len(view.Suggestions) > 0 {
		fmt.Fprintf(w, "Suggestions: %s\n\n", strings.Join(view.Suggestions, ", "))
	}
	if len(view.Notes) == 0 {
		fmt.Fprintln(w, "No notes found")
		return nil
	}
	for _, n := range view.Notes {
		writeNote(w, n)
	}
	return nil
}

func (a *app) printNote(w io.Writer, n models.Note) error {
	if a.asJSON {
		return encodeJSON(w, n)
	}
	writeNote(w, n)
	return nil
}

func writeNote(w io.Writer, n models.Note) {
	visibility := "private"
	if n.IsPublic {
		visibility = "public"
	}
	fmt.Fprintf(w, "%s  %s (%s)\n", n.ID, n.Title, visibility)
	if n.Content != "" {
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(n.Content, "\n", "\n    "))
	}
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
