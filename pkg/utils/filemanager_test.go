package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
)

var fixedNow = time.Date(2024, 1, 15, 9, 30, 5, 0, time.UTC)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(&config.MainConfig{
		InputDir:        filepath.Join(root, "input"),
		OutputDir:       filepath.Join(root, "output"),
		InputArchiveDir: filepath.Join(root, "input_archive"),
		UploadDir:       filepath.Join(root, "uploads"),
		ProcessedDir:    filepath.Join(root, "processed"),
	})
	fm.now = func() time.Time { return fixedNow }
	return fm
}

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEnsureDirectories(t *testing.T) {
	fm := newTestManager(t)
	require.NoError(t, fm.EnsureDirectories())

	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.UploadDir, fm.ProcessedDir} {
		assert.DirExists(t, dir)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b.csv", "a.XLSX", ".hidden.csv", "~$a.xlsx", "notes.txt"} {
		touch(t, filepath.Join(fm.InputDir, name), "x")
	}
	require.NoError(t, os.MkdirAll(filepath.Join(fm.InputDir, "dir.csv"), 0o755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a.XLSX"),
		filepath.Join(fm.InputDir, "b.csv"),
	}, files)

	fm.InputDir = filepath.Join(fm.InputDir, "missing")
	_, err = fm.DiscoverInputFiles()
	assert.Error(t, err)
}

func TestSaveUpload(t *testing.T) {
	fm := newTestManager(t)

	tests := []struct {
		name string
		want string
	}{
		{"orders.csv", "orders.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\Desktop\orders.csv`, "orders.csv"},
		{"..", "upload.csv"},
	}
	for _, tt := range tests {
		path, err := fm.SaveUpload(tt.name, strings.NewReader("data"))
		require.NoError(t, err, tt.name)

		assert.Equal(t, fm.UploadDir, filepath.Dir(path), tt.name)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}_`+regexp.QuoteMeta(tt.want)+`$`), filepath.Base(path), tt.name)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(data))
	}
}

func TestSaveProcessed(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.SaveProcessed([]byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.ProcessedDir, ProcessedFileName), path)

	_, err = fm.SaveProcessed([]byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assert.NoFileExists(t, path+".tmp")
}

func TestArchiveInputFile(t *testing.T) {
	fm := newTestManager(t)
	src := filepath.Join(fm.InputDir, "orders.csv")
	touch(t, src, "rows")

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "2024", "01", "15", "orders.csv"), archived)
	assert.NoFileExists(t, src)
	assert.FileExists(t, archived)

	fm.UseTimestampSubdirs = false
	touch(t, src, "rows")
	archived, err = fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "orders.csv"), archived)

	_, err = fm.ArchiveInputFile(filepath.Join(fm.InputDir, "missing.csv"))
	assert.Error(t, err)
}

func TestGenerateOutputFileName(t *testing.T) {
	fm := newTestManager(t)

	assert.Equal(t, "orders_xero_20240115_093005.csv",
		fm.GenerateOutputFileName("/in/orders.xlsx", "{original}_xero_{timestamp}.csv", "default", "orders"))
	assert.Equal(t, "legacy-cancellations-20240115.csv",
		fm.GenerateOutputFileName("refunds.csv", "{profile}-{kind}-{date}", "legacy", "cancellations"))
	assert.Regexp(t, `^[0-9a-f-]{36}\.CSV$`, fm.GenerateOutputFileName("a.csv", "{uuid}.CSV", "", ""))
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	summary := ProcessingSummary{
		StartTime:       fixedNow,
		EndTime:         fixedNow.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRows:       5,
		TotalLines:      7,
		ProcessedFiles: []ProcessedFileInfo{
			{InputFile: "a.csv", OutputFile: "a_xero.csv", Rows: 5, Lines: 7, Total: "540.00"},
		},
		FailedFilesList: []FailedFileInfo{
			{InputFile: "b.csv", ErrorMessage: "row 3: CheckoutPrice \"x\": invalid amount"},
		},
	}

	path, err := WriteSummaryLog(summary, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processing_summary_20240115_093007.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Duration:       2s")
	assert.Contains(t, text, "Total:        540.00")
	assert.Contains(t, text, `Error: row 3: CheckoutPrice "x": invalid amount`)
	assert.True(t, strings.HasSuffix(text, "End of Summary\n"))
}
