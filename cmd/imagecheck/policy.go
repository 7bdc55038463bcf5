package main

import (
	"encoding/json"

	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/spf13/cobra"
)

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource string   `json:"Resource"`
}

func newPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the IAM policy the checker's role needs",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := policyDocument{
				Version: "2012-10-17",
				Statement: []policyStatement{{
					Effect:   "Allow",
					Action:   checker.RequiredActions,
					Resource: "*",
				}},
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}
