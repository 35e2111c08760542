package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	deliveryhttp "github.com/place-density/internal/delivery/http"
	"github.com/place-density/internal/delivery/http/handler"
	"github.com/place-density/internal/usecase"
	"github.com/place-density/internal/visualize"
)

// NewServeCommand creates the serve command: run the pipeline once, then
// serve the map and the GeoJSON API.
func NewServeCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and serve the map over HTTP",
		Example: `  placedensity serve --region berlin
  placedensity serve --region berlin --versions 240101,250101 --with-populations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Region, "region", "r", "", "Region to process (required)")
	cmd.Flags().StringSliceVar(&opts.Versions, "versions", []string{"latest"}, "Extract versions to process")
	cmd.Flags().StringVar(&opts.VersionForAreas, "version-for-areas", "latest", `Version the boundaries come from, "false" to re-extract per version`)
	cmd.Flags().BoolVar(&opts.WithPopulations, "with-populations", false, "Enrich areas with Wikidata populations")
	cobra.CheckErr(cmd.MarkFlagRequired("region"))

	return cmd
}

func runServe(opts *RunOptions) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	uc, cleanup, err := buildPipeline(cfg, log, false)
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

	renderer := visualize.New(log)
	server := deliveryhttp.NewServer(
		cfg,
		log,
		handler.NewMapHandler(renderer, result, log),
		handler.NewResultHandler(result, log),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down HTTP server", zap.Error(err))
		os.Exit(1)
	}
	return nil
}
