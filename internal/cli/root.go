package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/grantaxiom/internal/ingest"
	"github.com/ppiankov/grantaxiom/internal/llm"
	"github.com/ppiankov/grantaxiom/internal/logging"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/util"
	"github.com/ppiankov/grantaxiom/internal/workbench"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grantaxiom",
	Short: "GrantAxiom - grant proposal audit, chat and simulation workbench",
	Long: `GrantAxiom checks the claims of a research proposal against a library of
reference excerpts using a generative model.

It flags each claim as verified, warning or contradiction, lists compliance
issues, answers questions about the proposal and generates interactive
HTML simulations of the proposed work.

Verdicts come from the model and the supplied references only. GrantAxiom
is a reviewer's aid, not a reviewer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to subcommands
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of GrantAxiom.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grantaxiom %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.grantaxiom/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.String("provider", "", "oracle provider (gemini, openai, anthropic, ollama)")
	pf.String("model", "", "oracle model name")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "rotated log file (optional)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", pf.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", pf.Lookup("model"))
	_ = viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("logging.file", pf.Lookup("log-file"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".grantaxiom"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := configureViper(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper maps GRANTAXIOM_LLM_PROVIDER to llm.provider, and so on
func configureViper(v *viper.Viper) error {
	v.SetEnvPrefix("GRANTAXIOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return setDefaults(v, model.DefaultConfig())
}

// setDefaults registers every config key so AutomaticEnv can resolve it
// during Unmarshal
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	flattenInto(v, "", tree)

	// Empty optional keys are omitted from the YAML but must stay resolvable
	for _, key := range []string{"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy", "logging.file"} {
		v.SetDefault(key, "")
	}
	return nil
}

func flattenInto(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flattenInto(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig resolves the effective configuration from defaults, config
// file, environment and flags
func loadConfig() (*model.Config, error) {
	return loadConfigFrom(viper.GetViper())
}

func loadConfigFrom(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}
	applyProviderEnv(&cfg.LLM)
	return cfg, nil
}

// applyProviderEnv fills credentials from the providers' conventional
// environment variables when the config leaves them empty
func applyProviderEnv(c *model.LLMConfig) {
	switch strings.ToLower(c.Provider) {
	case "gemini", "google", "":
		if c.APIKey == "" {
			c.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY")
		}
	case "openai":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.BaseURL == "" {
			c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// app bundles what most commands need
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	closeLog func() error
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func (a *app) close() {
	_ = a.closeLog()
}

// workbench builds the oracle provider chain and the workbench on top of it
func (a *app) workbench() (*workbench.Workbench, error) {
	opts, err := workbench.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, err
	}

	llmCfg := llm.ConfigFromModel(a.cfg.LLM)
	llmCfg.Logger = a.logger.Named("llm")
	provider, err := llm.NewFromConfig(a.cfg, llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	a.logger.Debug("oracle configured",
		zap.String("provider", provider.Name()),
		zap.String("model", a.cfg.LLM.Model),
		zap.Bool("cache", a.cfg.Cache.Enabled),
		zap.Float64("rps", a.cfg.RateLimit.RequestsPerSecond))
	return workbench.New(provider, opts, a.logger), nil
}

func (a *app) ingester() *ingest.Ingester {
	llmCfg := a.cfg.LLM
	client := util.NewHTTPClient(llmCfg.HTTPProxy, llmCfg.HTTPSProxy, llmCfg.NoProxy)
	return ingest.New(a.cfg.Ingest, ingest.WithHTTPClient(client), ingest.WithLogger(a.logger))
}

// loadReferences merges a reference library with ad-hoc sources: local
// files or http(s) URLs
func (a *app) loadReferences(cmd *cobra.Command, library string, sources []string, sample bool) ([]model.Reference, error) {
	var refs []model.Reference
	if sample {
		refs = append(refs, model.SampleReferences()...)
	}
	if library != "" {
		lib, err := ingest.LoadLibrary(library)
		if err != nil {
			return nil, err
		}
		refs = append(refs, lib...)
	}

	ing := a.ingester()
	for _, src := range sources {
		var (
			ref model.Reference
			err error
		)
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			ref, err = ing.FromURL(cmd.Context(), src)
		} else {
			ref, err = ing.FromFile(src)
		}
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", src, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// readProposal reads the proposal from path, or stdin when path is "-"
func readProposal(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read proposal: %w", err)
	}
	return string(data), nil
}
