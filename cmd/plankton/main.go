package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "plankton/pkg/catalog"
	"plankton/pkg/config"
	"plankton/pkg/image"
	"plankton/pkg/log"
)

var (
	configPath string
	user       string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "plankton",
	Short: "Manage virtual machine images kept on an object store",
	Long: `Plankton registers objects of a versioned object store as virtual machine images,
manages their metadata and sharing, and lists the images visible to an account.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetDebugMode()
		}
		return nil
	},
}

// loadConfig reads the configuration and applies its log level unless --debug is set.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if !debug {
		if err := log.SetLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid logLevel %q: %w", cfg.LogLevel, err)
		}
	}
	return cfg, nil
}

// withBackend runs fn with an image backend bound to --user and releases it afterwards.
func withBackend(fn func(image.Backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, err := image.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := provider.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close image backend")
		}
	}()

	backend, err := provider.Open(user)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close image session")
		}
	}()

	return fn(backend)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "plankton.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "Account acting on the images")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(objectCmd)
}

func main() {
	// Initialize logger first
	_ = log.Logger

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
