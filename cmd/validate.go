package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/xero-bills-converter/internal/converter"
	"github.com/ginjaninja78/xero-bills-converter/internal/validation"
)

var (
	validateKind       string
	validateDateFormat string
	validateProfile    string
	validateStrict     bool
	validateErrorLog   string
)

// validateCmd checks exports without writing anything. Unlike convert, it
// does not stop at the first bad row.
var validateCmd = &cobra.Command{
	Use:   "validate file...",
	Short: "Report every row of an export that would fail to convert",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateKind, "kind", "orders", "Export kind: orders or cancellations")
	validateCmd.Flags().StringVar(&validateDateFormat, "input-date-format", "", "Date order of the export (default from profile)")
	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "Layout profile code")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat warnings as errors")
	validateCmd.Flags().StringVar(&validateErrorLog, "error-log", "", "Also write the findings to this file")
}

func runValidate(files []string) error {
	kind, err := converter.ParseKind(validateKind)
	if err != nil {
		return err
	}
	opts := validation.ValidationOptions{Kind: kind, TreatWarningsAsErrors: validateStrict}
	if validateDateFormat != "" {
		if opts.InputDateFormat, err = converter.ParseDateFormat(validateDateFormat); err != nil {
			return fmt.Errorf("--input-date-format: %w", err)
		}
	}

	layouts, err := loadLayouts()
	if err != nil {
		return err
	}

	invalid := 0
	var all []*validation.ValidationError
	for _, file := range files {
		layout, err := pickLayout(layouts, validateProfile, file)
		if err != nil {
			return err
		}

		res, err := validation.NewValidator(layout, opts).ValidateFile(file)
		if err != nil {
			return err
		}

		log.Debug().
			Str("file", file).
			Str("profile", layout.ProfileCode).
			Int("rows", res.RowsValidated).
			Int("errors", res.ErrorCount).
			Int("warnings", res.WarningCount).
			Msg("Validated")

		status := "OK"
		if !res.IsValid {
			status = "INVALID"
			invalid++
		}
		fmt.Printf("%s: %s (%d rows, %d errors, %d warnings)\n",
			filepath.Base(file), status, res.RowsValidated, res.ErrorCount, res.WarningCount)
		if len(res.Errors) > 0 {
			fmt.Println(indent(validation.FormatErrors(res.Errors)))
		}
		all = append(all, res.Errors...)
	}

	if validateErrorLog != "" {
		if err := validation.WriteErrorLog(all, strings.Join(files, ", "), validateErrorLog); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d file(s) failed validation", invalid, len(files))
	}
	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "  " + l
		}
	}
	return strings.Join(lines, "\n")
}
