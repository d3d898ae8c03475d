package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the agent catalog of a running proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := fetchAgents(cmd.Context(), serverURL)
			if err != nil {
				return err
			}
			for _, a := range agents {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s %s\n", a.ID, a.Name, a.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "base URL of the chat proxy")
	return cmd
}
