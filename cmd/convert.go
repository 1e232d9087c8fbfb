// =============================================================================
// Xero Bills Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which is the main command for
// converting exports to Xero bulk-bill imports.
//
// COMMAND USAGE:
//   converter convert [file...] [flags]
//
// FLAGS:
//   --kind                : orders (default) or cancellations
//   --input-date-format   : day/month order of the export
//   --output-date-format  : day/month order written for Xero
//   --profile             : layout profile code
//   --output              : output file (single input only)
//   --dry-run             : convert without writing anything
//   --archive             : move converted inputs to the archive directory
//
// PROCESSING PIPELINE:
//   1. Load layout profiles
//   2. Use the given files, or discover .csv/.xlsx files in the input directory
//   3. Convert the files concurrently, one goroutine per file, bounded by
//      max_concurrency
//   4. Print and write a summary report
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xero-bills-converter/internal/converter"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
	"github.com/ginjaninja78/xero-bills-converter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	kindFlag         string
	inputDateFormat  string
	outputDateFormat string
	profileFlag      string
	outputFlag       string
	dryRun           bool
	archiveFlag      bool
)

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert [file...]",
	Short: "Convert order or cancellation exports to Xero bulk-bill CSV",
	Long: `The convert command converts the given exports, or every .csv and .xlsx
file in the input directory when none is given.

Files are converted concurrently. Each file is converted independently, and an
error in one file does not affect the others unless continue_on_error is off.

On success:
  - The Xero CSV is written to the output directory (or --output)
  - The export is moved to the input archive when --archive is set
  - A summary report is written to the output directory

On error:
  - The first bad row is reported with its row number and column
  - The export stays where it is`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&kindFlag, "kind", "orders", "Export kind: orders or cancellations")
	convertCmd.Flags().StringVar(&inputDateFormat, "input-date-format", "", "Date order of the export: dd/mm/yyyy or mm/dd/yyyy (default from profile)")
	convertCmd.Flags().StringVar(&outputDateFormat, "output-date-format", "", "Date order written for Xero: dd/mm/yyyy or mm/dd/yyyy (default from profile)")
	convertCmd.Flags().StringVar(&profileFlag, "profile", "", "Layout profile code (default: matched by file name, then config profile)")
	convertCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file; only valid with a single input")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Convert without writing output files")
	convertCmd.Flags().BoolVar(&archiveFlag, "archive", false, "Move converted inputs to the archive directory")
	convertCmd.Flags().Int("max-concurrency", 0, "Maximum number of files converted at once")

	bindFlag(convertCmd, "max_concurrency", "max-concurrency")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(ctx context.Context, args []string) error {
	startTime := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	// =========================================================================
	// STEP 1: OPTIONS AND PROFILES
	// =========================================================================

	base, err := baseOptions()
	if err != nil {
		return err
	}

	layouts, err := loadLayouts()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(appConfig)
	inputFiles := args
	if len(inputFiles) == 0 {
		inputFiles, err = files.DiscoverInputFiles()
		if err != nil {
			return err
		}
	}
	if len(inputFiles) == 0 {
		fmt.Println("No .csv or .xlsx files found in the input directory.")
		return nil
	}
	if outputFlag != "" && len(inputFiles) > 1 {
		return errors.New("--output can only be used with a single input file")
	}
	if !dryRun {
		if err := os.MkdirAll(appConfig.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	log.Info().Int("files", len(inputFiles)).Str("kind", string(base.Kind)).Msg("Converting")

	// =========================================================================
	// STEP 3: CONVERT FILES CONCURRENTLY
	// =========================================================================

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan converter.Result, len(inputFiles))
	sem := make(chan struct{}, appConfig.MaxConcurrency)
	var wg sync.WaitGroup

	for _, file := range inputFiles {
		wg.Add(1)
		go func(filePath string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- converter.Result{FilePath: filePath, Error: ctx.Err()}
				return
			}

			opts := base
			layout, err := pickLayout(layouts, profileFlag, filePath)
			if err != nil {
				results <- converter.Result{FilePath: filePath, Error: err}
				return
			}
			opts.Layout = layout

			result := converter.New(filePath, appConfig, opts).
				WithLogger(log.Logger).
				Run(ctx)
			if !result.Success && !appConfig.ShouldContinueOnError() {
				cancel()
			}
			results <- result
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND GENERATE SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: startTime, TotalFiles: len(inputFiles)}

	for result := range results {
		name := filepath.Base(result.FilePath)
		summary.TotalRows += result.Stats.RowsRead
		if result.Success {
			summary.SuccessfulFiles++
			lines := result.Stats.StockLines + result.Stats.DiscountLines
			summary.TotalLines += lines
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				Rows:        result.Stats.RowsRead,
				Lines:       lines,
				Total:       result.Stats.Total.StringFixed(2),
				ProcessTime: result.Stats.ProcessingTime,
			})
			target := result.OutputFile
			if target == "" {
				target = "(dry run)"
			}
			fmt.Printf("  ✓ %s -> %s (%d lines, total %s)\n", name, target, lines, result.Stats.Total.StringFixed(2))
		} else {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.FilePath,
				ErrorMessage: result.Error.Error(),
			})
			fmt.Printf("  ✗ %s: %v\n", name, result.Error)
		}
	}
	summary.EndTime = time.Now()

	fmt.Println("\n=== Conversion Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun && len(inputFiles) > 1 {
		if path, err := utils.WriteSummaryLog(summary, appConfig.OutputDir); err != nil {
			log.Warn().Err(err).Msg("Failed to write summary")
		} else {
			log.Info().Str("summary", path).Msg("Wrote summary")
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// baseOptions builds the per-file options shared by every file of the run.
func baseOptions() (converter.Options, error) {
	var opts converter.Options

	kind, err := converter.ParseKind(kindFlag)
	if err != nil {
		return opts, err
	}
	opts.Kind = kind

	if inputDateFormat != "" {
		if opts.InputDateFormat, err = converter.ParseDateFormat(inputDateFormat); err != nil {
			return opts, fmt.Errorf("--input-date-format: %w", err)
		}
	}
	if outputDateFormat != "" {
		if opts.OutputDateFormat, err = converter.ParseDateFormat(outputDateFormat); err != nil {
			return opts, fmt.Errorf("--output-date-format: %w", err)
		}
	}

	opts.DryRun = dryRun
	opts.Archive = archiveFlag
	opts.OutputPath = outputFlag
	if opts.Kind == "" {
		opts.Kind = types.KindOrders
	}
	return opts, nil
}
