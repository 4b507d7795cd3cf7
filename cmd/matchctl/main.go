package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rulesFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "matchctl",
		Short: "Offline tools for the MindMatch matching engine",
		Long: `matchctl ranks a therapist pool against referral criteria without touching
any database, and prints the rule set the engine would use.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rulesFile, "rules", "", "matching rules file (YAML, JSON or TOML); built-in rules when empty")

	root.AddCommand(rankCmd())
	root.AddCommand(rulesCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
