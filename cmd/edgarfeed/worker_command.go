package main

import (
	"os"

	"github.com/spf13/cobra"

	"edgarfeed/internal/worker"
	"edgarfeed/internal/workflow"
)

// runIDEnv carries the parent's run id into child workers.
const runIDEnv = "EDGARFEED_RUN_ID"

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Serve submission jobs over stdin/stdout",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context(), workflow.WithRunID(os.Getenv(runIDEnv)))
			if err != nil {
				return err
			}
			defer rt.Close()
			return worker.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(),
				worker.IngestHandler(rt.Ingestor()),
				worker.WithHeartbeat(rt.Config.HeartbeatInterval()))
		},
	}
}
