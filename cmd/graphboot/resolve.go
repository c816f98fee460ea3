package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"graphboot/internal/autoconfig"
	"graphboot/internal/config"
	"graphboot/internal/ogm"
)

// resolution is what the resolve command prints.
type resolution struct {
	Environment config.Environment       `yaml:"environment"`
	Sources     []string                 `yaml:"sources"`
	Driver      *ogm.DriverConfiguration `yaml:"driver,omitempty"`
	Compiler    string                   `yaml:"compiler,omitempty"`
	Packages    []string                 `yaml:"packages"`
	Decisions   autoconfig.Decisions     `yaml:"decisions"`
}

func newResolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved driver configuration and activation decisions",
		Long: "Resolves the configuration the way serve does, without connecting to the database. " +
			"Credentials are redacted. Exits non-zero on a configuration fault.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := flags.load()
			if err != nil {
				return err
			}
			out, err := resolve(cfg)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		},
	}
}

// resolve evaluates activation with no host registrations.
func resolve(cfg *config.Config) (*resolution, error) {
	openInView, err := autoconfig.ParseOpenInView(cfg.Neo4j)
	if err != nil {
		return nil, err
	}

	decisions := autoconfig.NewActivator(nil, nil).Decide(autoconfig.Inputs{
		Capabilities:   autoconfig.DefaultCapabilities(),
		WebApplication: cfg.Web.Enabled,
		OpenInView:     openInView,
	})

	out := &resolution{
		Environment: cfg.Environment,
		Sources:     cfg.LoadedFrom,
		Packages:    autoconfig.PackagesToScan(cfg.Scan.EntityPackages, cfg.Scan.BasePackages),
		Decisions:   decisions,
	}
	if decisions.SessionFactory.Register {
		driverConfig, err := ogm.Resolve(cfg.Neo4j)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve neo4j configuration: %w", err)
		}
		redacted := driverConfig.Redacted()
		out.Driver = &redacted
		out.Compiler = driverConfig.CompilerOrDefault()
	}
	return out, nil
}
