// =============================================================================
// Xero Bills Converter - CSV Parser Module
// =============================================================================
//
// This module is responsible for parsing the CSV exports of the marketplace.
// It handles:
//   - Different delimiters (comma, semicolon, tab, pipe)
//   - A header row that is not the first line (report titles above it)
//   - Custom data start rows
//   - UTF-8 (with or without BOM), Windows-1252 and ISO-8859-1 encodings
//   - Blank rows, which are skipped
//
// Spreadsheet tools on Windows save "£" as the single byte 0xA3, which is
// not valid UTF-8. Such files must be read with Encoding: Windows-1252.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// ErrUnknownEncoding is returned for an encoding name that is not supported.
var ErrUnknownEncoding = errors.New("unknown encoding")

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV export and returns the parsed table.
//
// PARAMETERS:
//   - r: The CSV content.
//   - settings: The CSV settings of the layout profile.
//   - sourceName: The file name, recorded on the table.
//
// RETURNS:
//   - The table. Header cells are trimmed; empty header cells are named
//     Column_N. Data rows keep their 1-indexed line number.
//   - An error if the content cannot be decoded or is not valid CSV.
func Parse(r io.Reader, settings config.CSVSettings, sourceName string) (*types.Table, error) {
	dec, err := decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(transform.NewReader(r, dec))
	reader := csv.NewReader(br)
	configureReader(reader, settings)

	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	dataStart := settings.DataStartRow
	if dataStart <= headerRow {
		dataStart = headerRow + 1
	}

	tbl := &types.Table{SourceFile: filepath.Base(sourceName)}

	for record := 1; ; record++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)

		switch {
		case record == headerRow:
			tbl.Headers = cleanHeaders(fields)
		case record < dataStart:
			// Title or notes above the data.
		case isRowEmpty(fields):
		default:
			tbl.Rows = append(tbl.Rows, types.Row{Number: line, Cells: fields})
		}
	}

	return tbl, nil
}

// decoder returns the decoder for an encoding name. UTF-8 input has its
// byte order mark removed.
func decoder(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "ISO-8859-15", "LATIN9":
		enc = charmap.ISO8859_15
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc.NewDecoder(), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	// Set the delimiter.
	// Handle special cases for common delimiters.
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if r := []rune(settings.Delimiter); len(r) > 0 {
			reader.Comma = r[0]
		} else {
			reader.Comma = ','
		}
	}

	// Exports often end rows with a trailing delimiter or omit empty
	// trailing cells.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders trims header cells and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// LooksUTF8 reports whether data looks like UTF-8 text. It is used to warn
// about exports that were saved in a legacy encoding but configured as UTF-8.
func LooksUTF8(data []byte) bool {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return utf8.Valid(data)
}
