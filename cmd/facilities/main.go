package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

//	@title						Facilities API
//	@version					1.0
//	@description				Users, nodes, projects, allocation requests and node manifests.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.apikey	NodeAuth
//	@in							header
//	@name						Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "facilities",
		Short: "Sage facilities API - users, nodes, projects and allocation requests",
		Long: `facilities serves the portal API for user accounts, node registrations,
project memberships, allocation requests and node inventory manifests.

Configuration is read from config.yaml and FACILITIES_* environment variables.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "facilities version %s\n", version)
		},
	}
}
