package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"watercolumn/internal/core"
	"watercolumn/internal/export"
	"watercolumn/pkg/domain"
)

var (
	flagWaterResources []string
	flagStations       []string
	flagYears          []int
	flagDateFrom       string
	flagDateTo         string
	flagParameters     []string
	flagSampleTypes    []string
	flagPrefix         string
	flagSplitYears     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the general results pipeline and store its CSV artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, core.PipelineGeneral)
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Run the trend pipeline, partitioning duplicate samples, and store its CSV artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, core.PipelineTrend)
	},
}

// addFilterFlags registers the shared measurement filter flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&flagWaterResources, "wbid", nil, "water resource (WBID) codes to pull")
	f.StringSliceVar(&flagStations, "station", nil, "station identifiers to pull")
	f.IntSliceVar(&flagYears, "year", nil, "calendar years to pull")
	f.StringVar(&flagDateFrom, "from", "", "inclusive start date (YYYY-MM-DD)")
	f.StringVar(&flagDateTo, "to", "", "inclusive end date (YYYY-MM-DD)")
	f.StringSliceVar(&flagParameters, "parameter", nil, "restrict the pull to the named parameters")
	f.StringSliceVar(&flagSampleTypes, "sample-type", nil, "restrict the pull to the named sample types")
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, trendCmd} {
		addFilterFlags(cmd)
		cmd.Flags().StringVar(&flagPrefix, "prefix", "", "artifact key prefix (overrides config export_prefix)")
		cmd.Flags().BoolVar(&flagSplitYears, "split-years", false, "run one pipeline per requested year, in parallel")
	}
	rootCmd.AddCommand(runCmd, trendCmd)
}

// buildFilter assembles the measurement filter from the shared flags and
// validates it, so missing arguments fail before any connection is opened.
func buildFilter() (domain.ResultFilter, error) {
	filter := domain.ResultFilter{
		WaterResources: flagWaterResources,
		StationIDs:     flagStations,
		Years:          flagYears,
		Parameters:     flagParameters,
		SampleTypes:    flagSampleTypes,
	}
	if flagDateFrom != "" {
		from, err := time.Parse("2006-01-02", flagDateFrom)
		if err != nil {
			return domain.ResultFilter{}, fmt.Errorf("parse --from: %w", err)
		}
		filter.DateFrom = &from
	}
	if flagDateTo != "" {
		to, err := time.Parse("2006-01-02", flagDateTo)
		if err != nil {
			return domain.ResultFilter{}, fmt.Errorf("parse --to: %w", err)
		}
		filter.DateTo = &to
	}
	return filter, filter.Validate()
}

// splitByYear clones the filter into one single-year filter per requested
// year so branches can run as fully independent pipelines.
func splitByYear(filter domain.ResultFilter) []domain.ResultFilter {
	if len(filter.Years) < 2 {
		return []domain.ResultFilter{filter}
	}
	out := make([]domain.ResultFilter, 0, len(filter.Years))
	for _, year := range filter.Years {
		f := filter
		f.Years = []int{year}
		out = append(out, f)
	}
	return out
}

func runPipeline(cmd *cobra.Command, kind core.PipelineKind) error {
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
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	svc := core.NewService(source, serviceOptions()...)

	filters := []domain.ResultFilter{filter}
	if flagSplitYears {
		filters = splitByYear(filter)
	}

	// Each branch owns an independent run; artifact keys embed the branch's
	// filter tag, so parallel writes never collide.
	prefix := exportPrefix()
	results := make([][]export.Artifact, len(filters))
	g, runCtx := errgroup.WithContext(ctx)
	for i, f := range filters {
		i, f := i, f
		g.Go(func() error {
			bundle, err := runKind(runCtx, svc, kind, f)
			if err != nil {
				return fmt.Errorf("run %s: %w", f.Tag(), err)
			}
			artifacts, err := export.WriteBundle(runCtx, store, export.Request{Kind: kind, Filter: f, Prefix: prefix}, bundle)
			if err != nil {
				return fmt.Errorf("export %s: %w", f.Tag(), err)
			}
			results[i] = artifacts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, artifacts := range results {
		for _, a := range artifacts {
			fmt.Fprintf(out, "%s\t%d rows\t%d bytes\n", a.Key, a.RowCount, a.Bytes)
		}
	}
	return nil
}

func runKind(ctx context.Context, svc *core.Service, kind core.PipelineKind, filter domain.ResultFilter) (core.RunBundle, error) {
	req := core.RunRequest{Filter: filter}
	if kind == core.PipelineTrend {
		return svc.RunTrend(ctx, req)
	}
	return svc.RunGeneral(ctx, req)
}
