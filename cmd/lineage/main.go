// Command lineage is the command-line client for the lineage server. The
// local subcommands run traversals in memory over an edge CSV file without
// a server.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/lineage/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.3.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3040"

var (
	apiClient *client.Client
	flagURL   string
	flagKey   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("lineage version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("lineage version %s-dev", version)
}

// profileConfig holds connection settings for a single profile.
type profileConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// profilesFile is the ~/.lineage/config.yaml structure.
type profilesFile struct {
	Profiles      map[string]profileConfig `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

// active returns the selected profile, or the zero profile when none matches.
func (f *profilesFile) active() profileConfig {
	if f == nil {
		return profileConfig{}
	}
	name := f.ActiveProfile
	if name == "" {
		name = "default"
	}
	return f.Profiles[name]
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "lineage",
		Short:   "Transitive closure and bounded path queries over an edge relation",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "lineage server URL (env: LINEAGE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API key (env: LINEAGE_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	skipClient := func(cmd *cobra.Command, args []string) {}

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = skipClient
	localCmd := newLocalCmd()
	localCmd.PersistentPreRun = skipClient

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newClosureCmd())
	rootCmd.AddCommand(newPathsCmd())
	rootCmd.AddCommand(newEdgesCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(localCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lineage", "config.yaml"), nil
}

func loadConfigFile() (string, *profilesFile, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfgPath, nil, err
	}
	var cfg profilesFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfgPath, nil, err
	}
	return cfgPath, &cfg, nil
}

// resolveConfig fills flagURL and flagKey. A flag takes precedence, then
// the environment, then the active profile of the config file.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("LINEAGE_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("LINEAGE_API_KEY")
	}

	_, cfg, err := loadConfigFile()
	if err != nil {
		return
	}
	p := cfg.active()
	if flagURL == defaultURL && p.URL != "" {
		flagURL = p.URL
	}
	if flagKey == "" && p.APIKey != "" {
		flagKey = p.APIKey
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
