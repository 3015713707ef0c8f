package main

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/lineage/client"
)

func newInitCmd() *cobra.Command {
	var (
		initURL     string
		initAPIKey  string
		initProfile string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up lineage CLI configuration",
		Long:  "Interactive setup that writes a profile to ~/.lineage/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := initURL != "" || initAPIKey != ""
			return runInit(initProfile, initURL, initAPIKey, nonInteractive)
		},
	}

	cmd.Flags().StringVar(&initURL, "url", "", "Server URL (non-interactive mode)")
	cmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (non-interactive mode)")
	cmd.Flags().StringVar(&initProfile, "profile", "default", "Profile name to write and activate")
	return cmd
}

func runInit(profile, url, apiKey string, nonInteractive bool) error {
	if !nonInteractive {
		fmt.Println("\n  lineage setup")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)

		fmt.Printf("  Server URL [%s]: ", defaultURL)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			url = line
		}

		fmt.Print("  API key (empty for none): ")
		keyLine, _ := reader.ReadString('\n')
		apiKey = strings.TrimSpace(keyLine)
	}

	if url == "" {
		url = defaultURL
	}

	ver, err := testConnection(url, apiKey)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	cfgPath, err := writeProfile(profile, profileConfig{URL: url, APIKey: apiKey})
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Connected to lineage %s. Profile %q saved to %s\n", ver, profile, cfgPath)
	return nil
}

// testConnection checks the server is reachable and the key is accepted.
func testConnection(url, apiKey string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.New(url, client.WithAPIKey(apiKey))
	health, err := c.Health(ctx)
	if err != nil {
		return "", err
	}
	if _, err := c.Edges.Count(ctx); err != nil {
		return "", err
	}
	if health.Version == "" {
		return "unknown", nil
	}
	return health.Version, nil
}

// writeProfile merges p into the config file under name and makes it active.
func writeProfile(name string, p profileConfig) (string, error) {
	cfgPath, cfg, err := loadConfigFile()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if cfg == nil {
		cfg = &profilesFile{}
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profileConfig{}
	}
	cfg.Profiles[name] = p
	cfg.ActiveProfile = name

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
