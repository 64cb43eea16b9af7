package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/token"
)

var deploymentsFlags struct {
	resourceGroup string
	provider      string
}

var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "Inspect AI Core deployments",
}

var deploymentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the running deployments of the configured providers",
	Long: `List the running deployments of every configured provider, or of a
single provider with --provider. The resource group from the provider
configuration is used unless overridden with --resource-group.`,
	RunE: listDeployments,
}

func init() {
	rootCmd.AddCommand(deploymentsCmd)
	deploymentsCmd.AddCommand(deploymentsListCmd)

	deploymentsListCmd.Flags().StringVarP(&deploymentsFlags.resourceGroup, "resource-group", "r", "", "override the resource group")
	deploymentsListCmd.Flags().StringVarP(&deploymentsFlags.provider, "provider", "p", "", "limit to one provider")
}

func listDeployments(cmd *cobra.Command, args []string) error {
	cfg, client, err := adminClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tID\tMODEL\tVERSION\tCONFIGURATION\tCREATED")

	for _, p := range cfg.Providers {
		if deploymentsFlags.provider != "" && p.Name != deploymentsFlags.provider {
			continue
		}
		if deploymentsFlags.resourceGroup != "" {
			p.ResourceGroup = deploymentsFlags.resourceGroup
		}

		deps, err := client.ListDeployments(ctx, p)
		if err != nil {
			return fmt.Errorf("provider %q: %w", p.Name, err)
		}
		for _, d := range deps {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Name, d.ID, d.Model, d.ModelVersion,
				d.ConfigurationName, d.CreatedAt.Format(time.RFC3339))
		}
	}

	return tw.Flush()
}

// adminClient loads the configuration and builds an AI Core API client
// for the admin subcommands.
func adminClient() (*config.Config, *deployments.Client, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Telemetry.Logging.Level
	if !verbose {
		// CLI output stays clean unless asked otherwise.
		level = "error"
	}
	logger := logging.Setup(config.LoggingConfig{Level: level, Format: "text"})

	tokens := token.NewManager(cfg.Providers, logger)
	return cfg, deployments.NewClient(tokens, nil), nil
}
