package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"dshbd-cli/internal/ordering"
	"dshbd-cli/internal/store"
)

var ErrDoctorIssuesFound = errors.New("doctor found issues")

type doctorIssue struct {
	BoardID   int64   `json:"boardId"`
	Partition string  `json:"partition"`
	Positions []int   `json:"positions"`
	Foreign   []int64 `json:"foreign,omitempty"`
	Message   string  `json:"message"`
}

func newDoctorCmd(app *App) *cobra.Command {
	var fix, fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that every column holds dense positions 0..n-1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var issues []doctorIssue
			err := app.withSession(cmd, func(rt *runtime) (result, error) {
				boards, err := rt.be.Boards(rt.ctx)
				if err != nil {
					return nil, err
				}
				for _, b := range boards {
					if err := rt.selectBoard(b.ID); err != nil {
						return nil, err
					}
					var found []*ordering.PartitionError
					if err := rt.do(func() error {
						found = rt.sess.Doctor(fix)
						return nil
					}); err != nil {
						return nil, err
					}
					for _, p := range found {
						issues = append(issues, doctorIssue{
							BoardID:   b.ID,
							Partition: p.Key.String(),
							Positions: p.Positions,
							Foreign:   p.Foreign,
							Message:   p.Error(),
						})
					}
				}
				// Walking the boards moved the remembered board; put it back.
				if err := store.RememberBoard(rt.cfg.LastBoardID); err != nil {
					rt.log.WithError(err).Warn("unable to restore last board")
				}
				return func() (any, error) {
					meta := map[string]any{
						"issues": len(issues),
						"fixed":  fix && len(issues) > 0,
						"boards": len(boards),
					}
					if rt.remote != nil {
						meta["breaker"] = rt.remote.BreakerState()
					}
					if rt.feed != nil {
						if err := rt.feed.Ping(rt.ctx); err != nil {
							meta["feed"] = err.Error()
						} else {
							meta["feed"] = "ok"
						}
					}
					if issues == nil {
						issues = []doctorIssue{}
					}
					return envelope(issues, meta), nil
				}, nil
			})
			if err != nil {
				return err
			}
			if fail && !fix && len(issues) > 0 {
				return ErrDoctorIssuesFound
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Renumber broken columns and write the result")
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if issues are found")
	return cmd
}
