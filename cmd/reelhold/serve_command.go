package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelhold/internal/daemon"
	"reelhold/internal/logging"
	"reelhold/internal/storage"
)

// newServeCommand runs the daemon in the foreground until interrupted. The
// reelholdd binary is the supervised deployment path; this command exists for
// ad-hoc and development use.
func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the progress daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := storage.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := daemon.New(runCtx, cfg, store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reelhold daemon listening on %s\n", d.APIAddr())

			<-runCtx.Done()
			return nil
		},
	}
}
