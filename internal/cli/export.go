package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"watercolumn/internal/core"
	"watercolumn/internal/export"
)

var (
	flagExportKind  string
	flagRequestedBy string
	flagReason      string
	flagExportWait  time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Queue a pipeline run through the export worker and wait for its artifacts",
	Long: `export runs a pipeline through the asynchronous export worker instead of
inline, producing an audited export record alongside the stored artifacts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flagExportWait)
		defer cancel()

		filter, err := buildFilter()
		if err != nil {
			return err
		}

		source, err := openSource(ctx)
		if err != nil {
			return err
		}
		defer source.Close()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		svc := core.NewService(source, serviceOptions()...)

		audit := export.NewMemoryAuditLog()
		worker := export.NewWorker(svc, store, audit)
		worker.Start()

		record, err := worker.Enqueue(ctx, export.Request{
			Kind:        core.PipelineKind(flagExportKind),
			Filter:      filter,
			Prefix:      exportPrefix(),
			RequestedBy: flagRequestedBy,
			Reason:      flagReason,
		})
		if err != nil {
			worker.Stop(context.Background())
			return err
		}

		for record.Status == export.StatusPending || record.Status == export.StatusRunning {
			select {
			case <-ctx.Done():
				worker.Stop(context.Background())
				return fmt.Errorf("export %s interrupted: %w", record.ID, ctx.Err())
			case <-time.After(50 * time.Millisecond):
			}
			record, _ = worker.Get(record.ID)
		}
		if err := worker.Stop(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: worker shutdown: %v\n", err)
		}

		encoded, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		if verbose {
			for _, entry := range audit.Entries() {
				fmt.Fprintf(cmd.ErrOrStderr(), "audit: %s %s %s\n",
					entry.OccurredAt.Format(time.RFC3339), entry.Action, entry.Status)
			}
		}
		if record.Status == export.StatusFailed {
			return fmt.Errorf("export %s failed: %s", record.ID, record.Error)
		}
		return nil
	},
}

func init() {
	addFilterFlags(exportCmd)
	f := exportCmd.Flags()
	f.StringVar(&flagExportKind, "kind", "general", "pipeline kind: general|trend")
	f.StringVar(&flagPrefix, "prefix", "", "artifact key prefix (overrides config export_prefix)")
	f.StringVar(&flagRequestedBy, "requested-by", "", "requesting operator recorded on the export")
	f.StringVar(&flagReason, "reason", "", "reason recorded on the export audit trail")
	f.DurationVar(&flagExportWait, "wait", 10*time.Minute, "maximum time to wait for the export to finish")
	rootCmd.AddCommand(exportCmd)
}
