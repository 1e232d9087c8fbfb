// =============================================================================
// Xero Bills Converter - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the export layout
// profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Layout Profiles (configs/*.yaml): Column names and formats of an export
//
// PRECEDENCE:
//   defaults < config.yaml < environment (XERO_*) < command-line flags
//   The last two are applied by ApplyOverrides from a viper instance that
//   the cmd package binds to the flags.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned by `convert` when no file is given.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated Xero CSV files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives source files after a successful conversion
	// when archiving is enabled.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// UploadDir stores files received by the upload endpoint.
	// Default: "./uploads"
	UploadDir string `yaml:"upload_dir"`

	// ProcessedDir stores the converted file of the last upload.
	// Default: "./processed"
	ProcessedDir string `yaml:"processed_dir"`

	// ConfigsDir contains the layout profiles.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel: trace, debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat: console or json.
	// Default: "console"
	LogFormat string `yaml:"log_format"`

	// LogOutput: stdout, stderr or a file path.
	// Default: "stderr"
	LogOutput string `yaml:"log_output"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// Profile is the layout profile used when none is given on the command
	// line and no profile file pattern matches.
	// Default: "default"
	Profile string `yaml:"profile"`

	// MaxConcurrency is the maximum number of files converted at once by
	// `convert` over a directory. Each file is still converted sequentially.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps converting the remaining files of a batch after
	// one file fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// =========================================================================
	// HTTP SETTINGS
	// =========================================================================

	// HTTPAddr is the listen address of `serve`.
	// Default: ":8080"
	HTTPAddr string `yaml:"http_addr"`

	// MaxUploadBytes limits the request body of the upload endpoint.
	// Default: 10 MiB
	MaxUploadBytes int `yaml:"max_upload_bytes"`
}

// ShouldContinueOnError reports the effective ContinueOnError value.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// LAYOUT PROFILE STRUCTURE
// =============================================================================

// LayoutConfig describes one export layout: which columns hold which
// field, how the file is encoded and which formats its values use.
type LayoutConfig struct {
	// ProfileName is the human-readable name, used in logs.
	ProfileName string `yaml:"profile_name"`

	// ProfileCode selects the profile on the command line and the form.
	ProfileCode string `yaml:"profile_code"`

	// FileMatchingPatterns are glob patterns; a file whose name matches one
	// of them is converted with this profile.
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// CSVSettings contains settings for parsing the input file.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// OrderColumns names the columns of the order export.
	OrderColumns OrderColumns `yaml:"order_columns"`

	// CancellationColumns names the columns of the cancellation export.
	CancellationColumns CancellationColumns `yaml:"cancellation_columns"`

	// CurrencySymbol is stripped from amount cells.
	// Default: "£"
	CurrencySymbol string `yaml:"currency_symbol"`

	// InputDateFormat is the day/month order of the export.
	// Default: "dd/mm/yyyy"
	InputDateFormat string `yaml:"input_date_format"`

	// OutputDateFormat is the day/month order written to the Xero file.
	// Default: "mm/dd/yyyy"
	OutputDateFormat string `yaml:"output_date_format"`

	// OutputFileFormat names the files written by `convert`.
	// Placeholders: {uuid}, {timestamp}, {date}, {profile}, {kind}, {original}
	// Default: "{original}_xero_{timestamp}.csv"
	OutputFileFormat string `yaml:"output_file_format"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), ";" (semicolon), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRow is the 1-indexed row holding the column names.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// DataStartRow is the 1-indexed row where the data begins.
	// Default: HeaderRow + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the file.
	// Supported: "UTF-8", "Windows-1252", "ISO-8859-1"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// MatchColumnsBy is "name" (look columns up by header), "position"
	// (take the columns in the order they are declared in the profile and
	// ignore the header text) or "auto" (by name, falling back to position
	// when the file has exactly the expected number of columns).
	// Default: "auto"
	MatchColumnsBy string `yaml:"match_columns_by"`

	// Sheet is the worksheet read from .xlsx exports. Empty means the
	// first sheet.
	Sheet string `yaml:"sheet"`
}

// OrderColumns names the columns of the order export.
type OrderColumns struct {
	OrderID       string `yaml:"order_id"`
	OrderDate     string `yaml:"order_date"`
	Invoice       string `yaml:"invoice"`
	CheckoutPrice string `yaml:"checkout_price"`
	VATAmount     string `yaml:"vat_amount"`
	Supplier      string `yaml:"supplier"`
	VatIsSixth    string `yaml:"vat_is_sixth"`
}

// Ordered returns the column names in their positional order.
func (c OrderColumns) Ordered() []string {
	return []string{c.OrderID, c.OrderDate, c.Invoice, c.CheckoutPrice, c.VATAmount, c.Supplier, c.VatIsSixth}
}

// CancellationColumns names the columns of the cancellation export.
type CancellationColumns struct {
	OrderColumns `yaml:",inline"`

	CreditNoteNumber string `yaml:"credit_note_number"`
	CancellationDate string `yaml:"cancellation_date"`
	FullyCancelled   string `yaml:"fully_cancelled"`
}

// Ordered returns the column names in their positional order.
func (c CancellationColumns) Ordered() []string {
	return append(c.OrderColumns.Ordered(), c.CreditNoteNumber, c.CancellationDate, c.FullyCancelled)
}

// RequiredColumns returns the columns a file of the given kind must carry.
func (l *LayoutConfig) RequiredColumns(kind types.RecordKind) []string {
	if kind == types.KindCancellations {
		return l.CancellationColumns.Ordered()
	}
	return l.OrderColumns.Ordered()
}

// DateFormats parses the configured input and output date formats.
func (l *LayoutConfig) DateFormats() (in, out types.DateFormat, err error) {
	if in, err = types.ParseDateFormat(l.InputDateFormat); err != nil {
		return "", "", fmt.Errorf("input_date_format: %w", err)
	}
	if out, err = types.ParseDateFormat(l.OutputDateFormat); err != nil {
		return "", "", fmt.Errorf("output_date_format: %w", err)
	}
	return in, out, nil
}

// =============================================================================
// BUILT-IN PROFILE
// =============================================================================

// DefaultProfileCode is the code of the built-in layout.
const DefaultProfileCode = "default"

// DefaultLayout returns the layout of the marketplace export the converter
// was written for.
func DefaultLayout() *LayoutConfig {
	layout := &LayoutConfig{
		ProfileName: "Marketplace purchase export",
		ProfileCode: DefaultProfileCode,
		OrderColumns: OrderColumns{
			OrderID:       "Order ID",
			OrderDate:     "Order Date",
			Invoice:       "Invoice",
			CheckoutPrice: "Checkout Price",
			VATAmount:     "VAT Amount",
			Supplier:      "Supplier",
			VatIsSixth:    "VAT == 1/6 Checkout Price",
		},
		CancellationColumns: CancellationColumns{
			OrderColumns: OrderColumns{
				OrderID:       "Original Order ID",
				OrderDate:     "Original Order Date",
				Invoice:       "Original Invoice Number",
				CheckoutPrice: "Original Checkout Price",
				VATAmount:     "Original VAT Amount",
				Supplier:      "Supplier Name",
				VatIsSixth:    "VAT == 1/6 Original Checkout Price",
			},
			CreditNoteNumber: "Credit Note Number",
			CancellationDate: "Cancellation Date",
			FullyCancelled:   "Fully Cancelled",
		},
	}
	applyLayoutDefaults(layout)
	return layout
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// A missing file is not an error: the defaults are returned so the tool runs
// out of the box. A file that exists but cannot be parsed is an error.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.UploadDir == "" {
		config.UploadDir = "./uploads"
	}
	if config.ProcessedDir == "" {
		config.ProcessedDir = "./processed"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.LogOutput == "" {
		config.LogOutput = "stderr"
	}
	if config.Profile == "" {
		config.Profile = DefaultProfileCode
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}
}

// validateMainConfig checks values that defaults cannot repair.
// Directories are created lazily by the commands that need them.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", config.LogFormat)
	}
	return nil
}

// ApplyOverrides copies every key set in v (environment or bound flags)
// over the loaded configuration.
func ApplyOverrides(config *MainConfig, v *viper.Viper) {
	if v == nil {
		return
	}

	strs := map[string]*string{
		"input_dir":         &config.InputDir,
		"output_dir":        &config.OutputDir,
		"input_archive_dir": &config.InputArchiveDir,
		"upload_dir":        &config.UploadDir,
		"processed_dir":     &config.ProcessedDir,
		"configs_dir":       &config.ConfigsDir,
		"log_level":         &config.LogLevel,
		"log_format":        &config.LogFormat,
		"log_output":        &config.LogOutput,
		"profile":           &config.Profile,
		"http_addr":         &config.HTTPAddr,
	}
	for key, dst := range strs {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("max_concurrency") && v.GetInt("max_concurrency") > 0 {
		config.MaxConcurrency = v.GetInt("max_concurrency")
	}
	if v.IsSet("max_upload_bytes") && v.GetInt("max_upload_bytes") > 0 {
		config.MaxUploadBytes = v.GetInt("max_upload_bytes")
	}
	if v.IsSet("continue_on_error") {
		b := v.GetBool("continue_on_error")
		config.ContinueOnError = &b
	}
}

// LoadLayoutConfigs loads all layout profiles from a directory.
//
// RETURNS:
//   - A map of profiles keyed by profile code. The built-in "default"
//     profile is always present unless a file redefines it.
//   - An error if any file cannot be parsed or names an unknown date format.
func LoadLayoutConfigs(configsDir string) (map[string]*LayoutConfig, error) {
	configs := map[string]*LayoutConfig{
		DefaultProfileCode: DefaultLayout(),
	}

	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		layout, err := loadLayoutConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		// Use profile code as the key.
		// If no code is specified, use the file name without extension.
		key := layout.ProfileCode
		if key == "" {
			key = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			layout.ProfileCode = key
		}
		if layout.ProfileName == "" {
			layout.ProfileName = key
		}

		configs[key] = layout
	}

	return configs, nil
}

// loadLayoutConfig loads a single layout profile file.
// Columns left out of the file fall back to the built-in layout.
func loadLayoutConfig(filePath string) (*LayoutConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	layout := DefaultLayout()
	layout.ProfileName = ""
	layout.ProfileCode = ""
	layout.OutputFileFormat = ""
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyLayoutDefaults(layout)

	if _, _, err := layout.DateFormats(); err != nil {
		return nil, err
	}
	if err := validateCSVSettings(layout.CSVSettings); err != nil {
		return nil, err
	}

	return layout, nil
}

// applyLayoutDefaults sets default values for a layout profile.
func applyLayoutDefaults(layout *LayoutConfig) {
	if layout.CSVSettings.Delimiter == "" {
		layout.CSVSettings.Delimiter = ","
	}
	if layout.CSVSettings.HeaderRow <= 0 {
		layout.CSVSettings.HeaderRow = 1
	}
	if layout.CSVSettings.DataStartRow <= layout.CSVSettings.HeaderRow {
		layout.CSVSettings.DataStartRow = layout.CSVSettings.HeaderRow + 1
	}
	if layout.CSVSettings.Encoding == "" {
		layout.CSVSettings.Encoding = "UTF-8"
	}
	if layout.CSVSettings.MatchColumnsBy == "" {
		layout.CSVSettings.MatchColumnsBy = "auto"
	}
	if layout.CurrencySymbol == "" {
		layout.CurrencySymbol = "£"
	}
	if layout.InputDateFormat == "" {
		layout.InputDateFormat = string(types.DayMonthYear)
	}
	if layout.OutputDateFormat == "" {
		layout.OutputDateFormat = string(types.MonthDayYear)
	}
	if layout.OutputFileFormat == "" {
		layout.OutputFileFormat = "{original}_xero_{timestamp}.csv"
	}
	if layout.ProfileName == "" {
		layout.ProfileName = layout.ProfileCode
	}
}

func validateCSVSettings(s CSVSettings) error {
	switch strings.ToLower(s.MatchColumnsBy) {
	case "name", "position", "auto":
	default:
		return fmt.Errorf("csv_settings.match_columns_by must be name, position or auto, got %q", s.MatchColumnsBy)
	}
	return nil
}

// FindLayoutForFile returns the profile whose file patterns match the file
// name, or nil when none does. Profiles are checked in code order so the
// result does not depend on map iteration.
func FindLayoutForFile(filePath string, layouts map[string]*LayoutConfig) *LayoutConfig {
	fileName := filepath.Base(filePath)

	codes := make([]string, 0, len(layouts))
	for code := range layouts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, pattern := range layouts[code].FileMatchingPatterns {
			matched, err := filepath.Match(pattern, fileName)
			if err != nil {
				// Invalid pattern, skip it.
				continue
			}
			if matched {
				return layouts[code]
			}
		}
	}

	return nil
}
