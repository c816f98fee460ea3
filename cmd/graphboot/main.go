package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"graphboot/internal/config"
)

type globalFlags struct {
	configFile  string
	configDir   string
	environment string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "graphboot",
		Short:         "Graph database auto-configuration",
		Long:          "Resolves the Neo4j driver configuration and serves an HTTP API with a session bound to every request.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Configuration file; overrides --config-dir")
	rootCmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "config", "Directory holding base.yaml and <environment>.yaml")
	rootCmd.PersistentFlags().StringVarP(&flags.environment, "env", "e", "", "Environment (default from GRAPHBOOT_ENVIRONMENT)")

	rootCmd.AddCommand(newServeCmd(flags), newResolveCmd(flags))
	return rootCmd
}

func (f *globalFlags) env() config.Environment {
	if f.environment != "" {
		return config.Environment(f.environment)
	}
	return config.EnvironmentFromEnv()
}

// load reads the configuration once and returns a function that repeats the
// same load for the watcher.
func (f *globalFlags) load() (*config.Config, *config.Loader, config.ReloadFunc, error) {
	if f.configFile != "" {
		loader := config.NewLoader(filepath.Dir(f.configFile), f.env())
		reload := func() (*config.Config, error) { return loader.LoadFile(f.configFile) }
		cfg, err := reload()
		return cfg, loader, reload, err
	}

	loader := config.NewLoader(f.configDir, f.env())
	cfg, err := loader.Load()
	return cfg, loader, loader.Load, err
}
