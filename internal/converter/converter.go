// =============================================================================
// Xero Bills Converter - Core Converter Module
// =============================================================================
//
// This module orchestrates the conversion of one export file into a Xero
// bulk-bill import file.
//
// PROCESSING PIPELINE:
//   1. Read the input file (CSV or XLSX) into a table
//   2. Extract order or cancellation records using the layout profile
//   3. Transform records into invoice lines
//   4. Write the Xero CSV file
//   5. Archive the input file (optional)
//
// Each file is converted sequentially on the calling goroutine. Batches of
// files are parallelised by the caller, one Converter per file.
//
// =============================================================================

package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/csvparser"
	"github.com/ginjaninja78/xero-bills-converter/internal/csvwriter"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
	"github.com/ginjaninja78/xero-bills-converter/internal/xlsxparser"
	"github.com/ginjaninja78/xero-bills-converter/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated CSV file.
	// This is empty if processing failed or on a dry run.
	OutputFile string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsRead is the number of non-blank data rows in the input.
	RowsRead int

	// RecordsConverted is the number of records that produced lines.
	RecordsConverted int

	// RecordsSkipped is the number of cancellation rows dropped because
	// they were not fully cancelled or repeated an order.
	RecordsSkipped int

	StockLines    int
	DiscountLines int

	// Total is the sum of all UnitAmounts written.
	Total decimal.Decimal

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// Output is the in-memory result of Convert.
type Output struct {
	Lines []types.InvoiceLine
	Stats ProcessingStats
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options select what is converted and how.
type Options struct {
	// Layout is the export layout. Nil means the built-in default.
	Layout *config.LayoutConfig

	// Kind is orders or cancellations. Empty means orders.
	Kind types.RecordKind

	// InputDateFormat and OutputDateFormat override the layout when set.
	InputDateFormat  DateFormat
	OutputDateFormat DateFormat

	// DryRun converts without writing or archiving anything.
	DryRun bool

	// Archive moves the input file to the archive directory after success.
	Archive bool

	// OutputPath overrides the generated output file name.
	OutputPath string
}

// transformer builds the Transformer for these options.
func (o Options) transformer() (*Transformer, error) {
	layout := o.layout()
	in, out, err := layout.DateFormats()
	if err != nil {
		return nil, err
	}
	if o.InputDateFormat != "" {
		in = o.InputDateFormat
	}
	if o.OutputDateFormat != "" {
		out = o.OutputDateFormat
	}
	return NewTransformer(TransformOptions{
		CurrencySymbol:   layout.CurrencySymbol,
		InputDateFormat:  in,
		OutputDateFormat: out,
	}), nil
}

func (o Options) layout() *config.LayoutConfig {
	if o.Layout == nil {
		return config.DefaultLayout()
	}
	return o.Layout
}

// =============================================================================
// IN-MEMORY CONVERSION
// =============================================================================

// Convert reads an export from r and returns its invoice lines.
// name is used to pick the parser by extension and in error messages.
func Convert(r io.Reader, name string, opts Options) (*Output, error) {
	layout := opts.layout()

	tbl, err := ReadTable(r, name, layout.CSVSettings)
	if err != nil {
		return nil, err
	}

	records, err := RecordsFromTable(tbl, layout, opts.Kind)
	if err != nil {
		return nil, err
	}

	t, err := opts.transformer()
	if err != nil {
		return nil, err
	}

	lines, err := t.Transform(records)
	if err != nil {
		return nil, err
	}

	out := &Output{Lines: lines}
	out.Stats.RowsRead = len(tbl.Rows)
	out.Stats.RecordsConverted = len(records)
	out.Stats.RecordsSkipped = len(tbl.Rows) - len(records)
	out.Stats.Total = decimal.Zero
	for _, l := range lines {
		if l.AccountCode == types.AccountDiscounts {
			out.Stats.DiscountLines++
		} else {
			out.Stats.StockLines++
		}
		out.Stats.Total = out.Stats.Total.Add(l.UnitAmount)
	}
	return out, nil
}

// ReadTable parses r as CSV or XLSX depending on the extension of name.
func ReadTable(r io.Reader, name string, settings config.CSVSettings) (*types.Table, error) {
	var (
		tbl *types.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		tbl, err = csvparser.Parse(r, settings, name)
	case ".xlsx":
		tbl, err = xlsxparser.Parse(r, settings, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	if len(tbl.Headers) == 0 || len(tbl.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}
	return tbl, nil
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single file on disk.
type Converter struct {
	inputPath  string
	mainConfig *config.MainConfig
	opts       Options
	files      *utils.FileManager
	log        zerolog.Logger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the input CSV or XLSX file.
//   - mainConfig: The main application configuration.
//   - opts: Layout, kind and output options.
func New(inputPath string, mainConfig *config.MainConfig, opts Options) *Converter {
	return &Converter{
		inputPath:  inputPath,
		mainConfig: mainConfig,
		opts:       opts,
		files:      utils.NewFileManager(mainConfig),
		log:        zerolog.Nop(),
	}
}

// WithLogger sets the logger used for the processing steps.
func (c *Converter) WithLogger(l zerolog.Logger) *Converter {
	c.log = l.With().Str("file", filepath.Base(c.inputPath)).Logger()
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
// ctx is checked between steps; a cancelled context fails the file before
// anything is written.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	result = Result{FilePath: c.inputPath}
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	layout := c.opts.layout()
	c.log.Info().
		Str("profile", layout.ProfileCode).
		Str("kind", string(kindOrDefault(c.opts.Kind))).
		Msg("Processing file")

	// =========================================================================
	// STEP 1-3: READ, EXTRACT, TRANSFORM
	// =========================================================================

	data, err := os.ReadFile(c.inputPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to read input: %w", err)
		return result
	}

	out, err := Convert(bytes.NewReader(data), c.inputPath, c.opts)
	if err != nil {
		result.Error = fmt.Errorf("failed to convert %s: %w", filepath.Base(c.inputPath), err)
		return result
	}
	result.Stats = out.Stats

	c.log.Debug().
		Int("rows", out.Stats.RowsRead).
		Int("records", out.Stats.RecordsConverted).
		Int("skipped", out.Stats.RecordsSkipped).
		Int("lines", len(out.Lines)).
		Msg("Transformed records")

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	if c.opts.DryRun {
		result.Success = true
		c.log.Info().Msg("Dry run, nothing written")
		return result
	}

	// =========================================================================
	// STEP 4: WRITE OUTPUT FILE
	// =========================================================================

	outputPath := c.opts.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(c.mainConfig.OutputDir,
			c.files.GenerateOutputFileName(c.inputPath, layout.OutputFileFormat, layout.ProfileCode, string(kindOrDefault(c.opts.Kind))))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %w", err)
		return result
	}
	if err := csvwriter.WriteFile(outputPath, out.Lines); err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.OutputFile = outputPath
	c.log.Info().Str("output", outputPath).Str("total", out.Stats.Total.StringFixed(2)).Msg("Wrote output")

	// =========================================================================
	// STEP 5: ARCHIVE INPUT
	// =========================================================================

	if c.opts.Archive {
		if archived, err := c.files.ArchiveInputFile(c.inputPath); err != nil {
			// Log the error but don't fail the processing.
			c.log.Warn().Err(err).Msg("Failed to archive input")
		} else {
			c.log.Debug().Str("archive", archived).Msg("Archived input")
		}
	}

	result.Success = true
	return result
}

func kindOrDefault(k types.RecordKind) types.RecordKind {
	if k == "" {
		return types.KindOrders
	}
	return k
}
