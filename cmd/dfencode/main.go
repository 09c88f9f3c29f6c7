// Command dfencode fits a categorical encoder on a reference CSV file and
// writes the encoded form of an input CSV file.
//
// Usage:
//
//	dfencode -fit train.csv [-input new.csv] [-output out.csv] [-config config.yaml]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/config"
	"github.com/dfencode/dfencode/core/model"
	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
	"github.com/dfencode/dfencode/preprocessing"
	"github.com/dfencode/dfencode/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	fitPath    string
	inputPath  string
	outputPath string
	matrix     bool
	plotColumn string
	plotPath   string
	logLevel   string
}

type palette struct {
	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
}

func newPalette() palette {
	return palette{
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

// run is main without the process exit, returning the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dfencode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&opts.fitPath, "fit", "", "Reference CSV file the encoder is fitted on (required)")
	fs.StringVar(&opts.inputPath, "input", "", "CSV file to transform (defaults to the -fit file)")
	fs.StringVar(&opts.outputPath, "output", "", "Output CSV file (defaults to stdout)")
	fs.BoolVar(&opts.matrix, "matrix", false, "Write a headerless numeric matrix")
	fs.StringVar(&opts.plotColumn, "plot-column", "", "Categorical column to plot category counts for")
	fs.StringVar(&opts.plotPath, "plot-path", "", "Image file for the category plot")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.fitPath == "" {
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  dfencode -fit data/train.csv [-input data/new.csv] [-output encoded.csv]")
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
		return 2
	}

	pal := newPalette()
	err := errors.SafeExecute("dfencode", func() error {
		return execute(opts, stdout, stderr, pal)
	})
	if err != nil {
		slog.Error("dfencode failed", log.ErrAttr(err))
		fmt.Fprintf(stderr, "%s %v\n", pal.red("error:"), err)
		return 1
	}
	return 0
}

func execute(opts options, stdout, stderr io.Writer, pal palette) (err error) {

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.plotColumn != "" {
		cfg.Report.PlotColumn = opts.plotColumn
	}
	if opts.plotPath != "" {
		cfg.Report.PlotPath = opts.plotPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := log.ParseLevel(cfg.Log.Level)
	if err := log.SetupLoggerTo(stderr, cfg.Log.Level); err != nil {
		return err
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: color.NoColor}).With().Timestamp().Logger()
	provider := log.NewZerologProviderFrom(zl)
	provider.SetLevel(level)
	log.SetProvider(provider)
	logger := log.GetLoggerWithName("cmd.dfencode")

	readOpts, err := cfg.ReadOptions()
	if err != nil {
		return err
	}
	fitFrame, err := dataset.ReadCSVFile(opts.fitPath, readOpts...)
	if err != nil {
		return err
	}
	inputFrame := fitFrame
	if opts.inputPath != "" && opts.inputPath != opts.fitPath {
		// the input is read with the fitted column types; config overrides still win
		inputOpts := append([]dataset.ReadOption{dataset.WithTypeHints(fitFrame.Types())}, readOpts...)
		if inputFrame, err = dataset.ReadCSVFile(opts.inputPath, inputOpts...); err != nil {
			return err
		}
	}
	logger.Debug("Input loaded",
		log.SamplesKey, inputFrame.NumRows(),
		log.FeaturesKey, inputFrame.NumCols(),
	)

	var warnings atomic.Int64
	enc := preprocessing.NewCategoricalEncoder(
		preprocessing.WithReturnAsMatrix(cfg.Encoder.ReturnAsMatrix || opts.matrix),
		preprocessing.WithNJobs(-1),
		preprocessing.WithWarningHandler(func(error) { warnings.Add(1) }),
	)
	pipeline := preprocessing.NewPipeline(enc, scalerSteps(cfg.Pipeline.Scaler)...)

	if err := pipeline.Fit(fitFrame); err != nil {
		return err
	}
	out, err := pipeline.Transform(inputFrame)
	if err != nil {
		return err
	}

	if err := writeOutput(opts.outputPath, stdout, out); err != nil {
		return err
	}

	if cfg.Report.PlotColumn != "" {
		encoded, err := enc.Transform(inputFrame)
		if err != nil {
			return err
		}
		if err := report.PlotCategoryCounts(enc, encoded, cfg.Report.PlotColumn, cfg.Report.PlotPath); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s %s\n", pal.cyan("plot:"), cfg.Report.PlotPath)
	}

	return printSummary(stderr, pal, enc, inputFrame.NumRows(), warnings.Load())
}

func scalerSteps(name string) []model.Transformer {
	switch strings.ToLower(name) {
	case config.ScalerStandard:
		return []model.Transformer{preprocessing.NewStandardScalerDefault()}
	case config.ScalerMinMax:
		return []model.Transformer{preprocessing.NewMinMaxScalerDefault()}
	default:
		return nil
	}
}

func writeOutput(path string, stdout io.Writer, out mat.Matrix) (err error) {
	w := stdout
	if path != "" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return errors.Wrapf(createErr, "create %s", path)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "close %s", path)
			}
		}()
		w = f
	}

	if frame, ok := out.(*dataset.Frame); ok {
		return dataset.WriteCSV(w, frame)
	}
	return dataset.WriteMatrixCSV(w, out)
}

func printSummary(w io.Writer, pal palette, enc *preprocessing.CategoricalEncoder, rows int, warnings int64) error {
	original, err := enc.OriginalColumns()
	if err != nil {
		return err
	}
	categorical, _ := enc.CategoricalColumns()
	binary, _ := enc.BinaryColumns()
	expansion, _ := enc.ExpansionColumns()
	encoded, _ := enc.EncodedColumns()

	fmt.Fprintf(w, "%s %d rows, %d columns -> %d columns\n",
		pal.green("encoded:"), rows, len(original), len(encoded))
	fmt.Fprintf(w, "  categorical: %d (binary: %d, expanded: %d)\n",
		len(categorical), len(binary), len(expansion))
	if warnings > 0 {
		fmt.Fprintf(w, "%s %d unseen categories mapped to 0\n", pal.yellow("warnings:"), warnings)
	}
	return nil
}
