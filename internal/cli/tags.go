package cli

import (
	"github.com/spf13/cobra"
)

func newTagsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect #tags used in task descriptions",
	}
	cmd.AddCommand(newTagsListCmd(app))
	cmd.AddCommand(newTagsSuggestCmd(app))
	return cmd
}

func newTagsListCmd(app *App) *cobra.Command {
	var boardID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags of a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(boardID); err != nil {
					return nil, err
				}
				return func() (any, error) {
					all := rt.sess.Tags().All()
					return envelope(all, map[string]any{"count": len(all)}), nil
				}, nil
			})
		},
	}
	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (default: last used board)")
	return cmd
}

func newTagsSuggestCmd(app *App) *cobra.Command {
	var boardID int64
	cmd := &cobra.Command{
		Use:   "suggest <#partial>",
		Short: "Suggest known tags for a partial tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(boardID); err != nil {
					return nil, err
				}
				return func() (any, error) {
					return envelope(rt.sess.Tags().Suggest(args[0]), nil), nil
				}, nil
			})
		},
	}
	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (default: last used board)")
	return cmd
}
