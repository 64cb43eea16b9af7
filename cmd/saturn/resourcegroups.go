package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var resourceGroupsCmd = &cobra.Command{
	Use:   "resource-groups",
	Short: "Inspect AI Core resource groups",
}

var resourceGroupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the resource groups of the configured providers",
	RunE:  listResourceGroups,
}

func init() {
	rootCmd.AddCommand(resourceGroupsCmd)
	resourceGroupsCmd.AddCommand(resourceGroupsListCmd)
}

func listResourceGroups(cmd *cobra.Command, args []string) error {
	cfg, client, err := adminClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tID\tSTATUS\tCREATED\tLABELS")

	for _, p := range cfg.Providers {
		groups, err := client.ListResourceGroups(ctx, p)
		if err != nil {
			return fmt.Errorf("provider %q: %w", p.Name, err)
		}
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				p.Name, g.ID, g.Status,
				g.CreatedAt.Format(time.RFC3339), formatLabels(g.Labels))
		}
	}

	return tw.Flush()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
