package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"dshbd-cli/internal/model"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List, create, edit and move tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var boardID int64
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of a board in column order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []model.Status
			if strings.TrimSpace(status) != "" {
				st, err := model.ParseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				statuses = []model.Status{st}
			} else {
				statuses = model.Statuses
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(boardID); err != nil {
					return nil, err
				}
				return func() (any, error) {
					b := rt.sess.Board()
					out := []model.Task{}
					for _, st := range statuses {
						for _, t := range b.Partition(st) {
							out = append(out, *t.Clone())
						}
					}
					return envelope(out, map[string]any{"boardId": b.ID, "count": len(out)}), nil
				}, nil
			})
		},
	}
	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (default: last used board)")
	cmd.Flags().StringVar(&status, "status", "", "Only this status (backlog|to-do|in-progress|done)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				t, err := rt.be.Task(rt.ctx, id)
				if err != nil {
					return nil, err
				}
				return func() (any, error) { return envelope(t, nil), nil }, nil
			})
		},
	}
}

// openTask selects the board holding task id and returns the id.
func (rt *runtime) openTask(id int64) error {
	t, err := rt.be.Task(rt.ctx, id)
	if err != nil {
		return err
	}
	return rt.selectBoard(t.BoardID)
}

func (rt *runtime) taskResult(id int64) result {
	return func() (any, error) {
		t, ok := rt.sess.Board().Find(id)
		if !ok {
			return nil, errors.New("task not found on board")
		}
		return envelope(*t.Clone(), nil), nil
	}
}

type taskFields struct {
	title, description, due, assignee string
	priority                          int
	clearDue, clearAssignee           bool
}

func (f *taskFields) bind(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&f.title, "title", "", "Title")
	}
	cmd.Flags().StringVar(&f.description, "description", "", "Description (markdown; #tags are indexed)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "Priority")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Assignee")
	cmd.Flags().BoolVar(&f.clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().BoolVar(&f.clearAssignee, "clear-assignee", false, "Remove the assignee")
}

// apply copies the flags the user actually set onto t.
func (f *taskFields) apply(cmd *cobra.Command, t *model.Task) {
	fl := cmd.Flags()
	if fl.Changed("title") {
		t.Title = f.title
	}
	if fl.Changed("description") {
		t.Description = f.description
	}
	if fl.Changed("priority") {
		t.Priority = f.priority
	}
	if fl.Changed("due") {
		t.DueDate = model.StrPtr(f.due)
	}
	if fl.Changed("assignee") {
		t.Assignee = model.StrPtr(f.assignee)
	}
	if f.clearDue {
		t.DueDate = nil
	}
	if f.clearAssignee {
		t.Assignee = nil
	}
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var fields taskFields
	var boardID int64
	var status string
	var index int
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task (backlog head by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.Task{Title: strings.TrimSpace(args[0])}
			if strings.TrimSpace(status) != "" {
				st, err := model.ParseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				t.Status = st
			}
			fields.apply(cmd, &t)
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.selectBoard(boardID); err != nil {
					return nil, err
				}
				var idx *int
				if cmd.Flags().Changed("index") {
					idx = &index
				}
				if err := rt.do(func() error {
					rt.hub.RequestCreate(t, idx)
					return nil
				}); err != nil {
					return nil, err
				}
				return func() (any, error) {
					created := rt.sess.ActiveTask()
					if created == nil {
						return nil, errors.New("task was not created")
					}
					return envelope(*created.Clone(), nil), nil
				}, nil
			})
		},
	}
	fields.bind(cmd, false)
	cmd.Flags().Int64Var(&boardID, "board", 0, "Board id (default: last used board)")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (default backlog)")
	cmd.Flags().IntVar(&index, "index", 0, "Position in the column (default: top)")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	var fields taskFields
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Edit task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.openTask(id); err != nil {
					return nil, err
				}
				if err := rt.do(func() error {
					cur, ok := rt.sess.Board().Find(id)
					if !ok {
						return errors.New("task not found on board")
					}
					edit := *cur.Clone()
					fields.apply(cmd, &edit)
					rt.hub.RequestUpdate(edit)
					return nil
				}); err != nil {
					return nil, err
				}
				return rt.taskResult(id), nil
			})
		},
	}
	fields.bind(cmd, true)
	return cmd
}

func newTasksMoveCmd(app *App) *cobra.Command {
	var status string
	var index, delta int
	var top, bottom bool
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task to another column or position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var st model.Status
			if strings.TrimSpace(status) != "" {
				if st, err = model.ParseStatus(status); err != nil {
					return writeErr(cmd, err)
				}
			}
			if top && bottom {
				return writeErr(cmd, errors.New("--top and --bottom are exclusive"))
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.openTask(id); err != nil {
					return nil, err
				}
				if err := rt.do(func() error {
					cur, ok := rt.sess.Board().Find(id)
					if !ok {
						return errors.New("task not found on board")
					}
					switch {
					case top || bottom:
						rt.sess.MoveToEdge(id, bottom)
					case delta != 0:
						rt.sess.Nudge(id, delta)
					case st != "":
						var idx *int
						if cmd.Flags().Changed("index") {
							idx = &index
						}
						rt.hub.RequestStatus(id, st, idx)
					case cmd.Flags().Changed("index"):
						rt.sess.Move(id, cur.Status, index)
					default:
						return errors.New("nothing to do: pass --status, --index, --delta, --top or --bottom")
					}
					return nil
				}); err != nil {
					return nil, err
				}
				return rt.taskResult(id), nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Target column")
	cmd.Flags().IntVar(&index, "index", 0, "Target position (default: top of the target column)")
	cmd.Flags().IntVar(&delta, "delta", 0, "Move up (negative) or down (positive) within the column")
	cmd.Flags().BoolVar(&top, "top", false, "Move to the top of its column")
	cmd.Flags().BoolVar(&bottom, "bottom", false, "Move to the bottom of its column")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a backlog task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withSession(cmd, func(rt *runtime) (result, error) {
				if err := rt.openTask(id); err != nil {
					return nil, err
				}
				if err := rt.do(func() error {
					rt.hub.RequestDelete(id)
					return nil
				}); err != nil {
					return nil, err
				}
				return func() (any, error) {
					return envelope(map[string]any{"id": id, "deleted": true}, nil), nil
				}, nil
			})
		},
	}
}
