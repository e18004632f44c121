package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pbudner/halfhour/api"
	"github.com/pbudner/halfhour/archive"
	"github.com/pbudner/halfhour/blocks"
	"github.com/pbudner/halfhour/config"
	"github.com/pbudner/halfhour/notify"
	"github.com/pbudner/halfhour/parsers"
	"github.com/pbudner/halfhour/segmenter"
	"github.com/pbudner/halfhour/sources"
	"github.com/pbudner/halfhour/storage"
	"github.com/pbudner/halfhour/stores"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const dirModePerm = 0755

// Pipeline wires the configured components together for one command.
type Pipeline struct {
	cfg       *config.Config
	catalogue *stores.Catalogue
	log       *zap.SugaredLogger
}

// New validates cfg and opens the catalogue.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := cfg.DatabasePath()
	if path != "" {
		if err := os.MkdirAll(path, dirModePerm); err != nil {
			return nil, fmt.Errorf("creating catalogue directory: %w", err)
		}
	}

	s, err := storage.NewDiskStorage(path)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		catalogue: stores.NewCatalogue(s),
		log:       zap.L().Sugar().With("service", "pipeline"),
	}, nil
}

func (p *Pipeline) Catalogue() *stores.Catalogue {
	return p.catalogue
}

func (p *Pipeline) Close() error {
	return p.catalogue.Close()
}

func (p *Pipeline) parser() (*parsers.TimestampParser, error) {
	return parsers.NewTimestampParser(p.cfg.TimestampLayouts, p.cfg.Timezone)
}

// Split segments every input file into block files. The returned error is
// only set when the run could not start; per-file failures are part of the
// summary.
func (p *Pipeline) Split(ctx context.Context) (segmenter.Summary, error) {
	if err := p.cfg.ValidateInput(); err != nil {
		return segmenter.Summary{}, err
	}

	if err := os.MkdirAll(p.cfg.OutputDirectory, dirModePerm); err != nil {
		return segmenter.Summary{}, fmt.Errorf("creating output directory: %w", err)
	}

	paths, err := sources.ListFiles(p.cfg.InputDirectory, p.cfg.FileExtension, p.cfg.Exclude)
	if err != nil {
		return segmenter.Summary{}, err
	}

	parser, err := p.parser()
	if err != nil {
		return segmenter.Summary{}, err
	}

	grid, err := blocks.NewGrid(p.cfg.BlockMinutes)
	if err != nil {
		return segmenter.Summary{}, err
	}

	run, err := p.catalogue.StartRun(p.cfg.SiteIdentifier, time.Now())
	if err != nil {
		return segmenter.Summary{}, err
	}

	formatter := blocks.NewFormatter(p.cfg.NaNToken, p.cfg.MalformedFields.Policy, p.cfg.MalformedFields.Placeholder)
	writer := blocks.NewWriter(p.cfg.OutputDirectory, p.cfg.SiteIdentifier, grid, p.cfg.Frequency, formatter, parser, blocks.WithLedger(p.catalogue))

	options := []func(*segmenter.Driver){
		segmenter.WithSink(segmenter.NewCatalogueSink(p.catalogue, p.cfg.SiteIdentifier, run.ID)),
	}
	if p.cfg.Kafka.Enabled() {
		publisher := notify.NewPublisher(p.cfg.Kafka, p.cfg.SiteIdentifier, run.ID)
		defer func() {
			if err := publisher.Close(); err != nil {
				p.log.Warnw("could not close kafka publisher", "error", err)
			}
		}()
		options = append(options, segmenter.WithSink(publisher))
	}

	p.log.Infow("starting split run",
		"run", run.ID,
		"files", len(paths),
		"input", p.cfg.InputDirectory,
		"output", p.cfg.OutputDirectory,
		"block-size", writer.ExpectedLines())

	driver := segmenter.NewDriver(segmenter.Options{
		HeaderLines: p.cfg.HeaderLines,
		Frequency:   p.cfg.Frequency,
		Grid:        grid,
	}, writer, parser, options...)
	summary := driver.Run(ctx, paths)

	run.Finished = time.Now()
	run.Files = summary.Files
	run.Failed = summary.Faulty
	run.Records = summary.Records
	if err := p.catalogue.FinishRun(run); err != nil {
		p.log.Errorw("could not store run", "run", run.ID, "error", err)
	}

	return summary, nil
}

// Extract unpacks the configured archives into the archive destination.
func (p *Pipeline) Extract(ctx context.Context) (archive.Result, error) {
	if err := p.cfg.ValidateArchive(); err != nil {
		return archive.Result{}, err
	}

	return archive.NewExtractor(p.cfg.Archive.Source, p.cfg.Archive.Destination, p.cfg.Archive.Extension).Run(ctx)
}

// Serve runs the HTTP API until ctx is done.
func (p *Pipeline) Serve(ctx context.Context, version, gitCommit string) error {
	return api.NewServer(p.cfg.Listener, version, gitCommit, p.cfg.SiteIdentifier, p.catalogue).Run(ctx)
}

// WriteMetrics dumps the default registry to the configured metrics file.
func (p *Pipeline) WriteMetrics() error {
	if p.cfg.MetricsFile == "" {
		return nil
	}

	return prometheus.WriteToTextfile(p.cfg.MetricsFile, prometheus.DefaultGatherer)
}
