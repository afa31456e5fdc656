package reporting_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/reporting"
)

const testToolVersion = "v1.0.0-test"

func TestNew_Stdout(t *testing.T) {
	for _, format := range []string{"json", "yaml", "sarif"} {
		for _, path := range []string{"", "-", "stdout"} {
			r, err := reporting.New(format, path, testToolVersion)
			require.NoError(t, err, format)
			assert.NotNil(t, r)
		}
	}
	// Closing without a report is a no-op for the document formats.
	r, err := reporting.New("json", "stdout", testToolVersion)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	r, err := reporting.New("xml", path, testToolVersion)
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
	assert.NoFileExists(t, path)
}

func TestJSONReporter_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	path := filepath.Join(dir, "test-report.json")
	report := sampleReport(t)

	r, err := reporting.New("json", path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Write(report))
	assert.NoFileExists(t, path, "file outputs appear only on Close")
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got schemas.ValidationReport
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, report.ID, got.ID)
	assert.False(t, got.OverallPass)
	assert.Equal(t, report.Errors, got.Errors)
	assert.Equal(t, schemas.StatusFail, got.Results[schemas.CheckAccessibilitySmoke].Status)
	assert.Equal(t, schemas.StatusError, got.Results[schemas.CheckTimeHeaderStability].Status)
	assert.True(t, got.TimestampStart.Equal(testStart))
	assert.Contains(t, string(raw), `"overall_pass": false`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestYAMLReporter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	report := sampleReport(t)

	r, err := reporting.New("YAML", path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Write(report))
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, report.ID.String(), doc["id"])
	assert.Equal(t, "file:///tmp/chat.html", doc["target"])
	assert.Equal(t, false, doc["overall_pass"])

	results, ok := doc["results"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, results, len(schemas.AllChecks))
	acc, ok := results["accessibility_smoke"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "fail", acc["status"])
}

func TestDocumentReporter_SingleReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r, err := reporting.New("json", path, testToolVersion)
	require.NoError(t, err)

	assert.Error(t, r.Write(nil))
	require.NoError(t, r.Write(sampleReport(t)))
	err = r.Write(sampleReport(t))
	assert.True(t, errors.Is(err, reporting.ErrReportAlreadyWritten))
	require.NoError(t, r.Close())
	assert.FileExists(t, path)
}

func TestDocumentReporter_CloseWithoutReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r, err := reporting.New("json", path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.NoFileExists(t, path)
}

func TestAtomicWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, reporting.AtomicWrite(path, []byte("first")))
	require.NoError(t, reporting.AtomicWrite(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestLockAndWrite_WaitsForLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	holder := flock.New(path + ".lock")
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	done := make(chan error, 1)
	go func() { done <- reporting.LockAndWrite(path, []byte("{}")) }()

	select {
	case <-done:
		t.Fatal("write completed while the lock was held")
	case <-time.After(100 * time.Millisecond):
	}
	assert.NoFileExists(t, path)

	require.NoError(t, holder.Unlock())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not complete after the lock was released")
	}
	assert.FileExists(t, path)
}

func TestScreenshotStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := reporting.NewScreenshotStore(dir)
	id := uuid.New()
	png := []byte{0x89, 'P', 'N', 'G'}

	path, err := store.WriteScreenshot(id, png)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "failure-"+id.String()+".png"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	_, err = store.WriteScreenshot(id, nil)
	assert.Error(t, err)
}
