package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dshbd-cli/internal/tui"
)

// runTUI shows the interactive board, then writes out whatever is still pending.
func runTUI(cmd *cobra.Command, app *App) error {
	poster := tui.NewPoster()
	rt, err := app.open(cmd, poster)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.close()
	if rt.cfg.TUI != nil {
		tui.UseGlyphs(rt.cfg.TUI.Glyphs)
	}

	if err := rt.sess.Load(rt.ctx); err != nil {
		return writeErr(cmd, err)
	}
	runErr := tui.Run(rt.ctx, rt.sess, poster)

	poster.Handoff(rt.loop)
	if err := rt.sess.Settle(rt.ctx, rt.loop); err != nil {
		return writeErr(cmd, err)
	}
	if runErr != nil {
		return writeErr(cmd, runErr)
	}
	return rt.do(func() error {
		for _, n := range rt.notices {
			if n.Level <= logrus.ErrorLevel {
				fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
			}
		}
		return nil
	})
}
