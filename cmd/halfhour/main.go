package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pbudner/halfhour/config"
	"github.com/pbudner/halfhour/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	GitCommit = "live"
	Version   = ""
)

var errRunFailed = errors.New("run finished with failures")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "halfhour",
		Short:         "Cut raw datalogger files into half-hour block files",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.NewConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logger)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = zap.L().Sync()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	withPipeline := func(run func(ctx context.Context, p *pipeline.Pipeline) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					zap.S().Errorw("could not close catalogue", "error", err)
				}
			}()

			runErr := run(cmd.Context(), p)
			if err := p.WriteMetrics(); err != nil {
				zap.S().Errorw("could not write metrics file", "path", cfg.MetricsFile, "error", err)
			}
			return runErr
		}
	}

	splitCmd := &cobra.Command{
		Use:   "split",
		Short: "Segment every raw input file into grid-aligned block files",
		RunE: withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			summary, err := p.Split(ctx)
			if err != nil {
				return err
			}
			if summary.Failed() {
				return errRunFailed
			}
			return nil
		}),
	}

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Unpack raw file archives into the input directory",
		RunE: withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			result, err := p.Extract(ctx)
			if err != nil {
				return err
			}
			if result.Failed > 0 {
				return errRunFailed
			}
			return nil
		}),
	}

	var scan bool
	var from, to string
	coverageCmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report the time ranges missing from the input data",
		RunE: withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			if from != "" {
				cfg.Coverage.From = from
			}
			if to != "" {
				cfg.Coverage.To = to
			}

			_, err := p.Coverage(os.Stdout, scan)
			return err
		}),
	}
	coverageCmd.Flags().BoolVar(&scan, "scan", false, "Read the time range of every input file instead of using the catalogue")
	coverageCmd.Flags().StringVar(&from, "from", "", "Start of the reported range (2006-01-02), overrides coverage.from")
	coverageCmd.Flags().StringVar(&to, "to", "", "End of the reported range (2006-01-02), overrides coverage.to")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue, coverage and metrics over HTTP",
		RunE: withPipeline(func(ctx context.Context, p *pipeline.Pipeline) error {
			return p.Serve(ctx, Version, GitCommit)
		}),
	}

	rootCmd.AddCommand(splitCmd, extractCmd, coverageCmd, serveCmd)
	return rootCmd
}
