package bootstrap

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdar-lab/ai-file-organizer/internal/config"
	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
	"github.com/rdar-lab/ai-file-organizer/internal/infrastructure/llm/ollama"
)

type cannedModel struct {
	answer string
}

func (m cannedModel) Complete(context.Context, string) (string, error) {
	return m.answer, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	labels, err := domain.CategoriesFromList([]string{"Documents", "Images"})
	require.NoError(t, err)

	root := t.TempDir()
	input := filepath.Join(root, "in")
	require.NoError(t, os.MkdirAll(input, 0o755))
	return config.Config{
		AI:           config.AIConfig{Provider: config.ProviderOpenAI, Retries: 0},
		Labels:       labels,
		InputFolder:  input,
		OutputFolder: filepath.Join(root, "out"),
		CSVReport:    filepath.Join(root, "report.csv"),
	}
}

func TestNewChatModelRequiresKeys(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderAzure, config.ProviderGoogle, config.ProviderAnthropic} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewChatModel(context.Background(), config.AIConfig{Provider: provider}, nil)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.AIConfig{Provider: "mystery"}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewChatModelBuildsEachProvider(t *testing.T) {
	cases := []config.AIConfig{
		{Provider: config.ProviderOpenAI, APIKey: "k"},
		{Provider: config.ProviderAzure, APIKey: "k", AzureEndpoint: "https://example.openai.azure.com"},
		{Provider: config.ProviderGoogle, APIKey: "k"},
		{Provider: config.ProviderAnthropic, APIKey: "k"},
		{Provider: config.ProviderLocal, EnsureModel: false},
	}
	for _, ai := range cases {
		t.Run(ai.Provider, func(t *testing.T) {
			model, err := NewChatModel(context.Background(), ai, nil)
			require.NoError(t, err)
			assert.NotNil(t, model)
		})
	}
}

func TestNewChatModelEnsuresLocalModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[{"name":"llama2:latest"}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	model, err := NewChatModel(context.Background(), config.AIConfig{
		Provider:    config.ProviderLocal,
		BaseURL:     srv.URL + "/v1",
		Model:       "llama2",
		EnsureModel: true,
	}, nil)
	require.NoError(t, err)
	client, ok := model.(*ollama.Client)
	require.True(t, ok)
	assert.Equal(t, "llama2", client.Model())
}

func TestAppRunsOrganizerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.InputFolder, "cat.png"), []byte("not really a png"), 0o644))

	app, err := New(context.Background(), cfg, nil, WithChatModel(cannedModel{answer: "Images"}))
	require.NoError(t, err)
	defer app.Close()
	require.Equal(t, 1, app.Audit.Len())

	organizer, err := app.NewOrganizer("run-1", nil)
	require.NoError(t, err)
	stats, err := organizer.Organize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.ByCategory["Images"])
	assert.FileExists(t, filepath.Join(cfg.OutputFolder, "Images", "cat.png"))

	f, err := os.Open(cfg.CSVReport)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cat.png", rows[1][0])
	assert.Equal(t, "Images", rows[1][7])
}

func TestStartMetricsServerIsNoopWithoutAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.CSVReport = ""
	app, err := New(context.Background(), cfg, nil, WithChatModel(cannedModel{answer: "Other"}))
	require.NoError(t, err)
	defer app.Close()

	assert.NoError(t, app.StartMetricsServer(context.Background()))
	assert.Equal(t, 0, app.Audit.Len())
}

func TestExecutorConfigCopiesRetrySettings(t *testing.T) {
	ai := config.AIConfig{Retries: 5, RequestsPerMinute: 30, CircuitBreaker: true}
	got := executorConfig(ai)
	assert.Equal(t, 5, got.Retries)
	assert.InDelta(t, 30, got.RequestsPerMinute, 1e-9)
	assert.True(t, got.BreakerEnabled)
}
