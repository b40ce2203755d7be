package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"watercolumn/internal/core"
	"watercolumn/internal/export"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Fetch station metadata with criteria annotations and print it as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filter, err := buildFilter()
		if err != nil {
			return err
		}

		source, err := openSource(ctx)
		if err != nil {
			return err
		}
		defer source.Close()
		svc := core.NewService(source, serviceOptions()...)

		frame, anomalies, err := svc.Sites(ctx, core.RunRequest{Filter: filter})
		if err != nil {
			return err
		}
		payload, err := export.RenderFrameCSV(frame)
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(payload); err != nil {
			return err
		}
		for _, a := range anomalies {
			fmt.Fprintf(cmd.ErrOrStderr(), "anomaly: %s station=%s %s\n", a.Kind, a.StationID, a.Message)
		}
		return nil
	},
}

func init() {
	addFilterFlags(sitesCmd)
	rootCmd.AddCommand(sitesCmd)
}
