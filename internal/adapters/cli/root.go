package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rdar-lab/ai-file-organizer/internal/bootstrap"
	"github.com/rdar-lab/ai-file-organizer/internal/config"
)

type rootFlags struct {
	configPath    string
	input         string
	output        string
	labels        []string
	provider      string
	model         string
	apiKey        string
	azureEndpoint string
	baseURL       string
	ensureModel   bool
	temperature   float64
	dryRun        bool
	csvReport     string
	continuous    bool
	interval      int
	watch         bool
	debug         bool
	logFormat     string
	metricsAddr   string
}

// NewRootCommand builds the organizer command. Bootstrap options are passed
// through to every run.
func NewRootCommand(opts ...bootstrap.Option) *cobra.Command {
	cmd, _ := newRootCommand(opts)
	return cmd
}

func newRootCommand(opts []bootstrap.Option) (*cobra.Command, *rootFlags) {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "ai-file-organizer",
		Short: "Organize files into category folders using an LLM",
		Long: `Scans an input folder, asks a language model to pick a category (and
optionally a sub-category) for every file and moves it into the matching
folder under the output folder. With --dry-run files are only classified and
reported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// "-l Documents Images Videos" leaves the trailing labels as args
			if len(args) > 0 {
				if !cmd.Flags().Changed("labels") {
					return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
				}
				f.labels = append(f.labels, args...)
			}
			cfg, err := config.Load(changedFlags(cmd, f), os.LookupEnv)
			if err != nil {
				return err
			}
			return run(cmd, cfg, opts)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "Input folder containing files to organize")
	fl.StringVarP(&f.output, "output", "o", "", "Output folder for organized files")
	fl.StringSliceVarP(&f.labels, "labels", "l", nil, "Category labels (space or comma separated)")
	fl.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML configuration file")
	fl.StringVar(&f.provider, "provider", "", "LLM provider: "+strings.Join(config.Providers, ", "))
	fl.StringVar(&f.model, "model", "", "Model name")
	fl.StringVar(&f.apiKey, "api-key", "", "API key for the LLM provider")
	fl.StringVar(&f.azureEndpoint, "azure-endpoint", "", "Azure endpoint URL (azure provider)")
	fl.StringVar(&f.baseURL, "base-url", "", "Base URL for the local or an OpenAI-compatible server")
	fl.BoolVar(&f.ensureModel, "ensure-model", false, "Pull the model on the local server when missing")
	fl.Float64Var(&f.temperature, "temperature", config.DefaultTemperature, "Sampling temperature")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Classify and report without moving files")
	fl.StringVar(&f.csvReport, "csv-report", "", "Append one CSV row per file to this path")
	fl.BoolVar(&f.continuous, "continuous", false, "Rerun at every interval until interrupted")
	fl.IntVar(&f.interval, "interval", int(config.DefaultInterval.Seconds()), "Seconds between runs in continuous mode")
	fl.BoolVar(&f.watch, "watch", false, "In continuous mode, also rerun when files appear in the input folder")
	fl.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fl.StringVar(&f.logFormat, "log-format", "", "Log format: json or text")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd, f
}

// changedFlags keeps only the flags the user actually set so that config file
// and environment values are not shadowed by flag defaults.
func changedFlags(cmd *cobra.Command, f *rootFlags) config.Flags {
	fl := cmd.Flags()
	var out config.Flags
	if fl.Changed("config") {
		out.ConfigPath = &f.configPath
	}
	if fl.Changed("input") {
		out.Input = &f.input
	}
	if fl.Changed("output") {
		out.Output = &f.output
	}
	if fl.Changed("labels") {
		out.Labels = &f.labels
	}
	if fl.Changed("provider") {
		out.Provider = &f.provider
	}
	if fl.Changed("model") {
		out.Model = &f.model
	}
	if fl.Changed("api-key") {
		out.APIKey = &f.apiKey
	}
	if fl.Changed("azure-endpoint") {
		out.AzureEndpoint = &f.azureEndpoint
	}
	if fl.Changed("base-url") {
		out.BaseURL = &f.baseURL
	}
	if fl.Changed("ensure-model") {
		out.EnsureModel = &f.ensureModel
	}
	if fl.Changed("temperature") {
		out.Temperature = &f.temperature
	}
	if fl.Changed("dry-run") {
		out.DryRun = &f.dryRun
	}
	if fl.Changed("csv-report") {
		out.CSVReport = &f.csvReport
	}
	if fl.Changed("continuous") {
		out.Continuous = &f.continuous
	}
	if fl.Changed("interval") {
		out.Interval = &f.interval
	}
	if fl.Changed("watch") {
		out.Watch = &f.watch
	}
	if fl.Changed("debug") && f.debug {
		level := "debug"
		out.LogLevel = &level
	}
	if fl.Changed("log-format") {
		out.LogFormat = &f.logFormat
	}
	if fl.Changed("metrics-addr") {
		out.MetricsAddr = &f.metricsAddr
	}
	return out
}
