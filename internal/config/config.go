package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

var Providers = []string{ProviderOpenAI, ProviderAzure, ProviderGoogle, ProviderAnthropic, ProviderLocal}

const (
	DefaultProvider    = ProviderOpenAI
	DefaultTemperature = 0.3
	DefaultInterval    = 60 * time.Second
)

type AIConfig struct {
	Provider       string
	Model          string
	Temperature    float64
	APIKey         string
	AzureEndpoint  string
	APIVersion     string
	DeploymentName string
	BaseURL        string
	EnsureModel    bool

	Retries                int
	BackoffFactor          time.Duration
	MaxBackoff             time.Duration
	RateLimitBackoffFactor time.Duration
	RateLimitMaxBackoff    time.Duration
	RequestsPerMinute      float64
	CircuitBreaker         bool
}

// LogValue leaves the API key out of every log line.
func (c AIConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", c.Provider),
		slog.String("model", c.Model),
		slog.Float64("temperature", c.Temperature),
		slog.String("azure_endpoint", c.AzureEndpoint),
		slog.String("base_url", c.BaseURL),
		slog.Bool("ensure_model", c.EnsureModel),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Int("retries", c.Retries),
	)
}

type AuditConfig struct {
	PostgresDSN string
	NATSURL     string
	NATSSubject string
}

type Config struct {
	AI           AIConfig
	Labels       domain.Categories
	InputFolder  string
	OutputFolder string
	DryRun       bool
	CSVReport    string
	Continuous   bool
	Interval     time.Duration
	Watch        bool
	LogLevel     string
	LogFormat    string
	MetricsAddr  string
	Audit        AuditConfig
}

// Flags holds the values the user explicitly set on the command line. A nil
// field means the flag was not given.
type Flags struct {
	ConfigPath    *string
	Input         *string
	Output        *string
	Labels        *[]string
	Provider      *string
	Model         *string
	APIKey        *string
	AzureEndpoint *string
	BaseURL       *string
	EnsureModel   *bool
	Temperature   *float64
	DryRun        *bool
	CSVReport     *string
	Continuous    *bool
	Interval      *int
	Watch         *bool
	LogLevel      *string
	LogFormat     *string
	MetricsAddr   *string
}

// LookupFunc reads one environment variable; os.LookupEnv fits.
type LookupFunc func(key string) (string, bool)

// Resolve returns the first non-nil value in precedence order.
func Resolve[T any](cli, file, env *T, def T) T {
	switch {
	case cli != nil:
		return *cli
	case file != nil:
		return *file
	case env != nil:
		return *env
	default:
		return def
	}
}

func Load(flags Flags, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: lookup, errs: new([]error)}

	var file FileConfig
	if path := Resolve(flags.ConfigPath, nil, env.str("CONFIG_PATH"), ""); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	ai := file.AI
	cfg := Config{
		AI: AIConfig{
			Provider:       strings.ToLower(Resolve(flags.Provider, ai.Provider, env.str("PROVIDER"), DefaultProvider)),
			Model:          Resolve(flags.Model, ai.Model, env.str("MODEL"), ""),
			Temperature:    Resolve(flags.Temperature, ai.Temperature, env.float("TEMPERATURE"), DefaultTemperature),
			APIKey:         Resolve(flags.APIKey, ai.APIKey, env.str("API_KEY"), ""),
			AzureEndpoint:  Resolve(flags.AzureEndpoint, ai.AzureEndpoint, env.str("AZURE_ENDPOINT"), ""),
			APIVersion:     Resolve(nil, ai.APIVersion, env.str("AZURE_API_VERSION"), ""),
			DeploymentName: Resolve(nil, ai.DeploymentName, env.str("AZURE_DEPLOYMENT"), ""),
			BaseURL:        Resolve(flags.BaseURL, ai.BaseURL, env.str("BASE_URL"), ""),
			EnsureModel:    Resolve(flags.EnsureModel, ai.EnsureModel, env.bool("ENSURE_MODEL"), true),

			Retries:                Resolve(nil, ai.Retries, env.int("LLM_RETRIES"), 2),
			BackoffFactor:          seconds(Resolve(nil, ai.BackoffFactor, nil, 1.0)),
			MaxBackoff:             seconds(Resolve(nil, ai.MaxBackoff, nil, 60.0)),
			RateLimitBackoffFactor: seconds(Resolve(nil, ai.BackoffFactorRateLimit, nil, 10.0)),
			RateLimitMaxBackoff:    seconds(Resolve(nil, ai.MaxBackoffRateLimit, nil, 120.0)),
			RequestsPerMinute:      Resolve(nil, ai.RequestsPerMinute, env.float("REQUESTS_PER_MINUTE"), 0),
			CircuitBreaker:         Resolve(nil, ai.CircuitBreaker, env.bool("CIRCUIT_BREAKER"), false),
		},
		InputFolder:  Resolve(flags.Input, file.InputFolder, env.str("INPUT_FOLDER"), ""),
		OutputFolder: Resolve(flags.Output, file.OutputFolder, env.str("OUTPUT_FOLDER"), ""),
		DryRun:       Resolve(flags.DryRun, file.DryRun, env.bool("DRY_RUN"), false),
		CSVReport:    Resolve(flags.CSVReport, file.CSVReport, env.str("CSV_REPORT"), ""),
		Continuous:   Resolve(flags.Continuous, file.Continuous, env.bool("CONTINUOUS"), false),
		Interval:     time.Duration(Resolve(flags.Interval, file.Interval, env.int("INTERVAL"), int(DefaultInterval/time.Second))) * time.Second,
		Watch:        Resolve(flags.Watch, file.Watch, env.bool("WATCH"), false),
		LogLevel:     Resolve(flags.LogLevel, file.LogLevel, env.str("LOG_LEVEL"), "info"),
		LogFormat:    Resolve(flags.LogFormat, file.LogFormat, env.str("LOG_FORMAT"), "json"),
		MetricsAddr:  Resolve(flags.MetricsAddr, file.MetricsAddr, env.str("METRICS_ADDR"), ""),
		Audit: AuditConfig{
			PostgresDSN: Resolve(nil, file.Audit.PostgresDSN, env.str("AUDIT_POSTGRES_DSN"), ""),
			NATSURL:     Resolve(nil, file.Audit.NATSURL, env.str("AUDIT_NATS_URL"), ""),
			NATSSubject: Resolve(nil, file.Audit.NATSSubject, env.str("AUDIT_NATS_SUBJECT"), ""),
		},
	}
	if err := env.err(); err != nil {
		return Config{}, err
	}

	applyProviderFallbacks(&cfg.AI, env)

	labels, err := resolveLabels(flags.Labels, file.Labels, env.str("LABELS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Labels = labels

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var problems []error
	if !isProvider(c.AI.Provider) {
		problems = append(problems, fmt.Errorf("unknown provider %q, expected one of %s", c.AI.Provider, strings.Join(Providers, ", ")))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		problems = append(problems, fmt.Errorf("temperature %.2f is outside [0, 2]", c.AI.Temperature))
	}
	if c.AI.Retries < 0 {
		problems = append(problems, errors.New("retries must not be negative"))
	}
	if c.Labels.Len() == 0 {
		problems = append(problems, errors.New("no labels specified: use --labels, the config file or LABELS"))
	}
	if c.InputFolder == "" {
		problems = append(problems, errors.New("no input folder specified: use --input, the config file or INPUT_FOLDER"))
	}
	if c.Continuous && c.Interval <= 0 {
		problems = append(problems, errors.New("interval must be positive in continuous mode"))
	}
	if len(problems) > 0 {
		return domain.WrapError(domain.ErrConfiguration, "validate config", errors.Join(problems...))
	}
	return nil
}

var providerKeyEnv = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAzure:     "AZURE_OPENAI_API_KEY",
	ProviderGoogle:    "GOOGLE_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func applyProviderFallbacks(ai *AIConfig, env envReader) {
	if ai.APIKey == "" {
		if key, ok := providerKeyEnv[ai.Provider]; ok {
			ai.APIKey = Resolve(nil, nil, env.str(key), "")
		}
	}
	switch ai.Provider {
	case ProviderAzure:
		if ai.AzureEndpoint == "" {
			ai.AzureEndpoint = Resolve(nil, nil, env.str("AZURE_OPENAI_ENDPOINT"), "")
		}
	case ProviderLocal:
		if ai.BaseURL == "" {
			ai.BaseURL = Resolve(nil, nil, env.str("OLLAMA_URL"), "")
		}
		if skip := env.bool("SKIP_OLLAMA_INIT"); skip != nil && *skip {
			ai.EnsureModel = false
		}
	}
}

func resolveLabels(cli *[]string, file *Labels, env *string) (domain.Categories, error) {
	switch {
	case cli != nil:
		return domain.CategoriesFromList(splitLabels(*cli...))
	case file != nil:
		return file.Categories, nil
	case env != nil:
		return domain.CategoriesFromList(splitLabels(*env))
	default:
		return domain.Categories{}, nil
	}
}

// splitLabels accepts space separated flag values as well as comma or
// semicolon separated lists.
func splitLabels(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// envReader treats empty variables as unset and collects parse failures.
type envReader struct {
	lookup LookupFunc
	errs   *[]error
}

func (e envReader) str(key string) *string {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func (e envReader) bool(key string) *bool {
	v := e.str(key)
	if v == nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(*v)) {
	case "1", "true", "yes", "y":
		b := true
		return &b
	default:
		b := false
		return &b
	}
}

func (e envReader) int(key string) *int {
	v := e.str(key)
	if v == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*v))
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return nil
	}
	return &n
}

func (e envReader) float(key string) *float64 {
	v := e.str(key)
	if v == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return nil
	}
	return &f
}

func (e envReader) fail(err error) {
	if e.errs != nil {
		*e.errs = append(*e.errs, err)
	}
}

func (e envReader) err() error {
	if e.errs == nil || len(*e.errs) == 0 {
		return nil
	}
	return domain.WrapError(domain.ErrConfiguration, "read environment", errors.Join(*e.errs...))
}
