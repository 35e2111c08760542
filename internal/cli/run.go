package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/place-density/internal/usecase"
	"github.com/place-density/internal/visualize"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Region          string
	Versions        []string
	VersionForAreas string
	WithPopulations bool
	OutputDir       string
	ExportPostgres  bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline and write GeoJSON plus the map page",
		Example: `  # Single region, current data
  placedensity run --region berlin

  # Compare two snapshots with population normalization
  placedensity run --region berlin --versions 240101,250101 --with-populations

  # Re-extract boundaries from each snapshot instead of sharing one set
  placedensity run --region berlin --versions 240101,250101 --version-for-areas false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Region, "region", "r", "", "Region to process (required)")
	cmd.Flags().StringSliceVar(&opts.Versions, "versions", []string{"latest"}, "Extract versions to process")
	cmd.Flags().StringVar(&opts.VersionForAreas, "version-for-areas", "latest", `Version the boundaries come from, "false" to re-extract per version`)
	cmd.Flags().BoolVar(&opts.WithPopulations, "with-populations", false, "Enrich areas with Wikidata populations")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "Override the configured output directory")
	cmd.Flags().BoolVar(&opts.ExportPostgres, "export-postgres", false, "Export joined results to the configured Postgres database")
	cobra.CheckErr(cmd.MarkFlagRequired("region"))

	return cmd
}

func runRun(opts *RunOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if opts.OutputDir != "" {
		cfg.Pipeline.OutputDir = opts.OutputDir
	}

	uc, cleanup, err := buildPipeline(cfg, log, opts.ExportPostgres)
	defer cleanup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := uc.Run(ctx, usecase.PipelineOptions{
		Region:          opts.Region,
		Versions:        opts.Versions,
		VersionForAreas: opts.VersionForAreas,
		WithPopulations: opts.WithPopulations,
	})
	if err != nil {
		return err
	}

	if err := uc.ExportGeoJSON(result); err != nil {
		return err
	}

	path, err := visualize.New(log).RenderToFile(result, cfg.Pipeline.OutputDir)
	if err != nil {
		return err
	}

	log.Info("Run complete",
		zap.String("region", result.Region),
		zap.Strings("versions", result.Versions),
		zap.String("map", path))
	fmt.Printf("Map written to %s\n", path)
	return nil
}
