package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdar-lab/ai-file-organizer/internal/bootstrap"
	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

type fixedModel struct {
	answer string
}

func (m fixedModel) Complete(context.Context, string) (string, error) {
	return m.answer, nil
}

// clearEnv keeps host settings out of config resolution.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "PROVIDER", "MODEL", "LABELS", "INPUT_FOLDER", "OUTPUT_FOLDER",
		"DRY_RUN", "CSV_REPORT", "CONTINUOUS", "WATCH", "LOG_LEVEL", "LOG_FORMAT",
		"METRICS_ADDR", "AUDIT_POSTGRES_DSN", "AUDIT_NATS_URL", "TEMPERATURE", "LLM_RETRIES",
	} {
		t.Setenv(key, "")
	}
}

func plainStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Box:     lipgloss.NewStyle(),
	}
}

func execute(t *testing.T, model string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(bootstrap.WithChatModel(fixedModel{answer: model}))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommandDryRun(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	input := filepath.Join(root, "in")
	output := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "invoice.pdf"), []byte("%PDF-1.4 broken"), 0o644))

	stdout, stderr, err := execute(t, "Documents",
		"-i", input, "-o", output, "-l", "Documents", "Images", "--dry-run", "--log-format", "text")
	require.NoError(t, err)

	assert.Contains(t, stdout, "invoice.pdf -> Documents")
	assert.Contains(t, stdout, "Organization Complete! (dry run)")
	assert.Contains(t, stdout, "1 files")
	assert.Contains(t, stderr, "config_loaded")
	assert.FileExists(t, filepath.Join(input, "invoice.pdf"))
	assert.NoDirExists(t, filepath.Join(output, "Documents"))
}

func TestRootCommandMovesFilesAndWritesReport(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	input := filepath.Join(root, "in")
	output := filepath.Join(root, "out")
	report := filepath.Join(root, "report.csv")
	require.NoError(t, os.MkdirAll(input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(input, "notes.txt"), []byte("hello"), 0o644))

	_, _, err := execute(t, "Documents",
		"--input", input, "--output", output, "--labels", "Documents,Images", "--csv-report", report)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(output, "Documents", "notes.txt"))
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "notes.txt,5,.txt,"))
}

func TestRootCommandRejectsStrayArguments(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "Other", "-i", t.TempDir(), "stray")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected arguments: stray")
}

func TestRootCommandConfigurationError(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "Other", "-i", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "no labels specified")
}

func TestRootCommandBadProvider(t *testing.T) {
	clearEnv(t)
	_, _, err := execute(t, "Other", "-i", t.TempDir(), "-l", "A", "--provider", "mystery")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestChangedFlagsOnlyKeepsSetFlags(t *testing.T) {
	cmd, raw := newRootCommand(nil)
	require.NoError(t, cmd.ParseFlags([]string{"-i", "/data/in", "--temperature", "0.7", "--debug"}))

	f := changedFlags(cmd, raw)
	require.NotNil(t, f.Input)
	assert.Equal(t, "/data/in", *f.Input)
	require.NotNil(t, f.Temperature)
	assert.InDelta(t, 0.7, *f.Temperature, 1e-9)
	require.NotNil(t, f.LogLevel)
	assert.Equal(t, "debug", *f.LogLevel)

	assert.Nil(t, f.Output)
	assert.Nil(t, f.Labels)
	assert.Nil(t, f.Interval)
	assert.Nil(t, f.DryRun)
	assert.Nil(t, f.ConfigPath)
}

func TestChangedFlagsDebugFalseLeavesLevel(t *testing.T) {
	cmd, raw := newRootCommand(nil)
	require.NoError(t, cmd.ParseFlags([]string{"--debug=false", "--dry-run=false"}))

	f := changedFlags(cmd, raw)
	assert.Nil(t, f.LogLevel)
	require.NotNil(t, f.DryRun)
	assert.False(t, *f.DryRun)
}

func TestRenderSummary(t *testing.T) {
	labels, err := domain.CategoriesFromList([]string{"Documents", "Images"})
	require.NoError(t, err)
	stats := domain.RunStats{
		TotalFiles: 3,
		Processed:  2,
		Failed:     1,
		ByCategory: map[string]int{"Documents": 2},
		Duration:   1234567 * time.Microsecond,
	}

	out := RenderSummary(plainStyles(), stats, labels, false)
	assert.Contains(t, out, "Organization Complete!")
	assert.NotContains(t, out, "dry run")
	assert.Contains(t, out, "Total files:3")
	assert.Contains(t, out, "Failed:1")
	assert.Contains(t, out, "Duration:1.235s")
	assert.Contains(t, out, "Documents:2 files")
	assert.Contains(t, out, "Images:0 files")
	assert.Contains(t, out, "Other:0 files")
	assert.Less(t, strings.Index(out, "Documents:"), strings.Index(out, "Images:"))

	stats.Cancelled = true
	assert.Contains(t, RenderSummary(plainStyles(), stats, labels, true), "Organization Cancelled (dry run)")
}

func TestProgressReporterPrintsFinishedFiles(t *testing.T) {
	var out bytes.Buffer
	r := NewProgressReporter(&out, plainStyles())
	ctx := context.Background()

	r.Publish(ctx, domain.ProgressEvent{Kind: domain.EventFileStarted, File: "/in/a.txt", Index: 1, Total: 3})
	r.Publish(ctx, domain.ProgressEvent{
		Kind: domain.EventFileFinished, File: "/in/a.txt", Index: 1, Total: 3,
		Decision: domain.Decision{Category: "Documents", Subcategory: "Invoices", Resolved: true},
	})
	r.Publish(ctx, domain.ProgressEvent{
		Kind: domain.EventFileFinished, File: "/in/b.bin", Index: 2, Total: 3,
		Decision: domain.Decision{Category: "Whatever"},
	})
	r.Publish(ctx, domain.ProgressEvent{
		Kind: domain.EventFileFinished, File: "/in/c.jpg", Index: 3, Total: 3,
		Err: errors.New("permission denied"),
	})
	r.Close()
	r.Close()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[1/3] a.txt -> Documents/Invoices", lines[0])
	assert.Equal(t, "[2/3] b.bin -> Other", lines[1])
	assert.Equal(t, "[3/3] c.jpg failed: permission denied", lines[2])
}

func TestContinuousModeStopsOnCancel(t *testing.T) {
	clearEnv(t)
	input := t.TempDir()
	cmd := NewRootCommand(bootstrap.WithChatModel(fixedModel{answer: "Documents"}))
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-i", input, "-l", "Documents", "--dry-run", "--continuous", "--interval", "3600"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("continuous mode did not stop after cancel")
	}
}
