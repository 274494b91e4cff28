package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"crowdfund.toml", "cf.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server        string `toml:"server"`
	DefaultFilter string `toml:"default_filter,omitempty"`
	DonateAmount  string `toml:"donate_amount,omitempty"`
}

// ServerConfig is the global server configuration (stored in ~/.crowdfund/config.yaml)
type ServerConfig struct {
	Server string `yaml:"server"`
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a crowdfund.toml configuration file in the current directory.

This file stores the server URL and per-project defaults like the
campaign list filter.

EXAMPLES:
  # Create config with default server
  crowdfund config init

  # Create config for a specific server
  crowdfund config init --server https://crowdfund.example.com

  # Overwrite existing config
  crowdfund config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(serverURL, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server URL")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration.

Shows both the local project config (crowdfund.toml) and the global config from ~/.crowdfund/config.yaml.

EXAMPLES:
  crowdfund config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigInit(serverURL string, force bool) error {
	configPath := "crowdfund.toml"

	// Check if any config file already exists
	for _, cfgFile := range projectConfigFiles {
		if _, err := os.Stat(cfgFile); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", cfgFile)
		}
	}

	// Generate TOML config
	content := fmt.Sprintf(`# Crowdfund CLI configuration

server = "%s"

# Default list filter: all, active, finished, mine
default_filter = "active"

# Default donation amount in native units
# donate_amount = "0.01"
`, serverURL)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Server: %s\n", serverURL)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s to customize settings\n", configPath)
	fmt.Println("  2. Run 'crowdfund auth login' to authenticate")
	fmt.Println("  3. Run 'crowdfund list' to browse campaigns")

	return nil
}

func runConfigShow() error {
	fmt.Println("Configuration sources (in order of precedence):")
	fmt.Println()

	// 1. Command line flags
	fmt.Println("1. Command line flags")
	fmt.Println("   --server, --api-key, --config")
	fmt.Println()

	// 2. Environment variables
	fmt.Println("2. Environment variables")
	serverEnv := os.Getenv("CROWDFUND_SERVER")
	keyEnv := os.Getenv("CROWDFUND_API_KEY")
	if serverEnv != "" {
		fmt.Printf("   CROWDFUND_SERVER=%s\n", serverEnv)
	} else {
		fmt.Println("   CROWDFUND_SERVER=(not set)")
	}
	if keyEnv != "" {
		fmt.Printf("   CROWDFUND_API_KEY=%s\n", maskAPIKey(keyEnv))
	} else {
		fmt.Println("   CROWDFUND_API_KEY=(not set)")
	}
	fmt.Println()

	// 3. Local project config
	fmt.Println("3. Local project config (crowdfund.toml or cf.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		fmt.Printf("   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Printf("   server: %s\n", projectConfig.Server)
		}
		if projectConfig.DefaultFilter != "" {
			fmt.Printf("   default_filter: %s\n", projectConfig.DefaultFilter)
		}
		if projectConfig.DonateAmount != "" {
			fmt.Printf("   donate_amount: %s\n", projectConfig.DonateAmount)
		}
	}
	fmt.Println()

	// 4. Global config
	fmt.Println("4. Global config (~/.crowdfund/config.yaml)")
	globalPath := filepath.Join(credentialsDir(), "config.yaml")
	globalData, err := os.ReadFile(globalPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		var globalConfig ServerConfig
		if err := yaml.Unmarshal(globalData, &globalConfig); err == nil {
			if globalConfig.Server != "" {
				fmt.Printf("   server: %s\n", globalConfig.Server)
			}
		}
	}
	fmt.Println()

	// 5. Credentials
	fmt.Println("5. Credentials (~/.crowdfund/credentials)")
	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("   (not found)")
		} else {
			fmt.Printf("   Error: %v\n", err)
		}
	} else {
		if len(creds.Servers) == 0 {
			fmt.Println("   (no credentials stored)")
		} else {
			for server, cred := range creds.Servers {
				fmt.Printf("   %s: %s\n", server, maskAPIKey(cred.APIKey))
			}
		}
	}
	fmt.Println()

	// Effective config
	fmt.Println("Effective configuration:")
	fmt.Printf("   Server:  %s\n", getServer())
	if key := getAPIKey(); key != "" {
		fmt.Printf("   API Key: %s\n", maskAPIKey(key))
	} else {
		fmt.Println("   API Key: (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	// Search for config files in order
	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Returns nil if the file doesn't exist, but returns errors for parse failures.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		// Show actionable errors (parse failures)
		fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		return nil
	}
	return config
}
