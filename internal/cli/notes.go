package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"dshbd-cli/internal/backend"
	"dshbd-cli/internal/model"
)

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "List, create and edit notes",
	}
	cmd.AddCommand(newNotesListCmd(app))
	cmd.AddCommand(newNotesCreateCmd(app))
	cmd.AddCommand(newNotesEditCmd(app))
	return cmd
}

func newNotesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				notes, err := rt.be.Notes(rt.ctx)
				if err != nil {
					return nil, err
				}
				return func() (any, error) {
					return envelope(notes, map[string]any{"count": len(notes)}), nil
				}, nil
			})
		},
	}
}

func newNotesCreateCmd(app *App) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := model.Note{Title: strings.TrimSpace(args[0]), Content: content}
			var created model.Note
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				rt.sess.Adapter().CreateNote(n, func(out model.Note, err error) {
					if err == nil {
						created = out
					}
				})
				return func() (any, error) {
					if created.ID == 0 {
						return nil, errors.New("note was not created")
					}
					return envelope(created, nil), nil
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "Note body (markdown)")
	return cmd
}

func newNotesEditCmd(app *App) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Edit a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("note", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var saved model.Note
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				notes, err := rt.be.Notes(rt.ctx)
				if err != nil {
					return nil, err
				}
				var cur *model.Note
				for i := range notes {
					if notes[i].ID == id {
						cur = &notes[i]
						break
					}
				}
				if cur == nil {
					return nil, backend.ErrNotFound("note", id)
				}
				if cmd.Flags().Changed("title") {
					cur.Title = title
				}
				if cmd.Flags().Changed("content") {
					cur.Content = content
				}
				saved = *cur
				rt.sess.Adapter().Save(saved)
				return func() (any, error) { return envelope(saved, nil), nil }, nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New body")
	return cmd
}
