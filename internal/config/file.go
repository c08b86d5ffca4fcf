package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// FileConfig mirrors the YAML config document. Pointer fields stay nil when
// the key is absent so the file only overrides what it mentions.
type FileConfig struct {
	AI           FileAI    `yaml:"ai"`
	Labels       *Labels   `yaml:"labels"`
	InputFolder  *string   `yaml:"input_folder"`
	OutputFolder *string   `yaml:"output_folder"`
	DryRun       *bool     `yaml:"dry_run"`
	CSVReport    *string   `yaml:"csv_report"`
	Continuous   *bool     `yaml:"continuous"`
	Interval     *int      `yaml:"interval"`
	Watch        *bool     `yaml:"watch"`
	LogLevel     *string   `yaml:"log_level"`
	LogFormat    *string   `yaml:"log_format"`
	MetricsAddr  *string   `yaml:"metrics_addr"`
	Audit        FileAudit `yaml:"audit"`
}

type FileAI struct {
	Provider       *string  `yaml:"provider"`
	Model          *string  `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	APIKey         *string  `yaml:"api_key"`
	AzureEndpoint  *string  `yaml:"azure_endpoint"`
	APIVersion     *string  `yaml:"api_version"`
	DeploymentName *string  `yaml:"deployment_name"`
	BaseURL        *string  `yaml:"base_url"`
	EnsureModel    *bool    `yaml:"ensure_model"`

	// Backoff values are seconds.
	Retries                *int     `yaml:"retries"`
	BackoffFactor          *float64 `yaml:"backoff_factor"`
	MaxBackoff             *float64 `yaml:"max_backoff"`
	BackoffFactorRateLimit *float64 `yaml:"backoff_factor_rate_limit"`
	MaxBackoffRateLimit    *float64 `yaml:"max_backoff_rate_limit"`
	RequestsPerMinute      *float64 `yaml:"requests_per_minute"`
	CircuitBreaker         *bool    `yaml:"circuit_breaker"`
}

type FileAudit struct {
	PostgresDSN *string `yaml:"postgres_dsn"`
	NATSURL     *string `yaml:"nats_url"`
	NATSSubject *string `yaml:"nats_subject"`
}

func LoadFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, domain.WrapError(domain.ErrConfiguration, "read config file", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return FileConfig{}, domain.WrapError(domain.ErrConfiguration, "parse config file "+path, err)
	}
	return cfg, nil
}

// Labels is the `labels` key: either a list of category names or a mapping of
// category to sub-categories. Mapping order is kept.
type Labels struct {
	Categories domain.Categories
}

func (l *Labels) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("labels: %w", err)
		}
		cats, err := domain.CategoriesFromList(names)
		if err != nil {
			return err
		}
		l.Categories = cats
		return nil
	case yaml.MappingNode:
		items := make([]domain.Category, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			subs, err := subcategoryNodes(node.Content[i+1])
			if err != nil {
				return fmt.Errorf("labels.%s: %w", name, err)
			}
			items = append(items, domain.Category{Name: name, Subcategories: subs})
		}
		cats, err := domain.NewCategories(items)
		if err != nil {
			return err
		}
		l.Categories = cats
		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		cats, err := domain.CategoriesFromList(splitLabels(node.Value))
		if err != nil {
			return err
		}
		l.Categories = cats
		return nil
	default:
		return fmt.Errorf("labels: line %d: expected a list or a mapping", node.Line)
	}
}

func subcategoryNodes(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			return nil, nil
		}
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		var subs []string
		if err := node.Decode(&subs); err != nil {
			return nil, err
		}
		return subs, nil
	default:
		return nil, fmt.Errorf("line %d: sub-categories must be a list", node.Line)
	}
}
