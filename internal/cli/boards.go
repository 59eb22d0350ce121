package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dshbd-cli/internal/model"
	"dshbd-cli/internal/store"
)

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), kind+"-"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}

func newBoardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List and manage boards",
	}
	cmd.AddCommand(newBoardsListCmd(app))
	cmd.AddCommand(newBoardsCreateCmd(app))
	cmd.AddCommand(newBoardsEditCmd(app))
	cmd.AddCommand(newBoardsArchiveCmd(app))
	cmd.AddCommand(newBoardsUseCmd(app))
	return cmd
}

func newBoardsListCmd(app *App) *cobra.Command {
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				boards, err := rt.be.Boards(rt.ctx)
				if err != nil {
					return nil, err
				}
				out := make([]model.Board, 0, len(boards))
				for _, b := range boards {
					if b.Archived && !includeArchived {
						continue
					}
					out = append(out, b.Summary())
				}
				return func() (any, error) {
					return envelope(out, map[string]any{"count": len(out), "lastBoardId": rt.cfg.LastBoardID}), nil
				}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "Include archived boards")
	return cmd
}

func newBoardsCreateCmd(app *App) *cobra.Command {
	var description string
	var todoLimit, progressLimit int
	var use bool
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				b, err := rt.be.CreateBoard(rt.ctx, model.Board{
					Title:         strings.TrimSpace(args[0]),
					Description:   description,
					ToDoLimit:     todoLimit,
					ProgressLimit: progressLimit,
				})
				if err != nil {
					return nil, err
				}
				if use {
					if err := store.RememberBoard(b.ID); err != nil {
						return nil, err
					}
				}
				return func() (any, error) { return envelope(b.Summary(), nil), nil }, nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Board description")
	cmd.Flags().IntVar(&todoLimit, "todo-limit", model.DefaultToDoLimit, "Advisory to-do column limit (0 = none)")
	cmd.Flags().IntVar(&progressLimit, "progress-limit", model.DefaultProgressLimit, "Advisory in-progress column limit (0 = none)")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new board the default")
	return cmd
}

func newBoardsEditCmd(app *App) *cobra.Command {
	var title, description string
	var todoLimit, progressLimit int
	var autoPull bool
	cmd := &cobra.Command{
		Use:   "edit <board-id>",
		Short: "Edit board settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			fl := cmd.Flags()
			if fl.Changed("title") && strings.TrimSpace(title) == "" {
				return writeErr(cmd, errors.New("title must not be empty"))
			}
			if todoLimit < 0 || progressLimit < 0 {
				return writeErr(cmd, errors.New("limits must be >= 0"))
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				b, err := rt.be.Board(rt.ctx, id)
				if err != nil {
					return nil, err
				}
				if fl.Changed("title") {
					b.Title = strings.TrimSpace(title)
				}
				if fl.Changed("description") {
					b.Description = description
				}
				if fl.Changed("todo-limit") {
					b.ToDoLimit = todoLimit
				}
				if fl.Changed("progress-limit") {
					b.ProgressLimit = progressLimit
				}
				if fl.Changed("auto-pull") {
					b.AutoPull = autoPull
				}
				b, err = rt.be.UpdateBoard(rt.ctx, b)
				if err != nil {
					return nil, err
				}
				return func() (any, error) { return envelope(b.Summary(), nil), nil }, nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Board title")
	cmd.Flags().StringVar(&description, "description", "", "Board description")
	cmd.Flags().IntVar(&todoLimit, "todo-limit", 0, "Advisory to-do column limit (0 = none)")
	cmd.Flags().IntVar(&progressLimit, "progress-limit", 0, "Advisory in-progress column limit (0 = none)")
	cmd.Flags().BoolVar(&autoPull, "auto-pull", false, "Auto-pull setting (stored; applied by the server)")
	return cmd
}

func newBoardsArchiveCmd(app *App) *cobra.Command {
	var unarchive bool
	cmd := &cobra.Command{
		Use:   "archive <board-id>",
		Short: "Archive (or unarchive) a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				b, err := rt.be.Board(rt.ctx, id)
				if err != nil {
					return nil, err
				}
				b.Archived = !unarchive
				b, err = rt.be.UpdateBoard(rt.ctx, b)
				if err != nil {
					return nil, err
				}
				return func() (any, error) { return envelope(b.Summary(), nil), nil }, nil
			})
		},
	}
	cmd.Flags().BoolVar(&unarchive, "undo", false, "Unarchive instead")
	return cmd
}

func newBoardsUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <board-id>",
		Short: "Make a board the default for later commands and the TUI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(id); err != nil {
					return nil, err
				}
				return func() (any, error) { return envelope(rt.sess.Board().Summary(), nil), nil }, nil
			})
		},
	}
}

// parseFilter reads "field=value".
func parseFilter(s string) (model.Filter, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return model.Filter{}, fmt.Errorf("invalid filter %q (want field=value)", s)
	}
	f, err := model.ParseField(k)
	if err != nil {
		return model.Filter{}, err
	}
	val, err := f.ParseValue(v)
	if err != nil {
		return model.Filter{}, err
	}
	return model.Filter{Field: f, Value: val}, nil
}

func newBoardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect the active board",
	}
	cmd.AddCommand(newBoardShowCmd(app))
	return cmd
}

func newBoardShowCmd(app *App) *cobra.Command {
	var boardID int64
	var search, sortSpec, tag string
	var filters []string
	var withBacklog bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the board columns under a search, filters, sort and tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := model.BoardView{SearchTerm: search}
			for _, raw := range filters {
				f, err := parseFilter(raw)
				if err != nil {
					return writeErr(cmd, err)
				}
				view = view.AddFilter(f)
			}
			if sortSpec != "" {
				s, err := model.ParseSort(sortSpec)
				if err != nil {
					return writeErr(cmd, err)
				}
				view.Sort = s
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(boardID); err != nil {
					return nil, err
				}
				if err := rt.do(func() error {
					rt.sess.View.Set(view)
					rt.sess.SetTag(tag)
					return nil
				}); err != nil {
					return nil, err
				}
				return func() (any, error) {
					b := rt.sess.Board()
					if b == nil {
						return nil, errors.New("no active board")
					}
					cols := rt.sess.Columns()
					if !withBacklog {
						kept := cols[:0]
						for _, c := range cols {
							if c.Status != model.StatusBacklog {
								kept = append(kept, c)
							}
						}
						cols = kept
					}
					return envelope(map[string]any{
						"board":   b.Summary(),
						"columns": cols,
					}, map[string]any{"view": rt.sess.ViewState()}), nil
				}, nil
			})
		},
	}
	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (default: last used board)")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive title search")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Exact-match filter field=value (repeatable)")
	cmd.Flags().StringVar(&sortSpec, "sort", "", "Sort field[:asc|desc]")
	cmd.Flags().StringVar(&tag, "tag", "", "Only tasks whose description carries #tag")
	cmd.Flags().BoolVar(&withBacklog, "backlog", false, "Include the backlog column")
	return cmd
}
