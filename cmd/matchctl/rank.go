package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/spf13/cobra"
)

func rankCmd() *cobra.Command {
	var (
		criteriaFile string
		poolFile     string
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank a therapist pool for one referral",
		Long: `Score every therapist in --pool against --criteria and print the top
matches as JSON. Only therapists with is_verified set are considered.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var criteria matching.Criteria
			if err := readJSON(criteriaFile, &criteria); err != nil {
				return fmt.Errorf("criteria: %w", err)
			}
			var pool []models.Therapist
			if err := readJSON(poolFile, &pool); err != nil {
				return fmt.Errorf("pool: %w", err)
			}

			rules, err := matching.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			verified := pool[:0]
			for _, t := range pool {
				if t.IsVerified {
					verified = append(verified, t)
				}
			}

			results := matching.NewEngine(rules).FindMatches(criteria, verified, limit)
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&criteriaFile, "criteria", "", "referral criteria JSON file")
	cmd.Flags().StringVar(&poolFile, "pool", "", "therapist pool JSON file (array)")
	cmd.Flags().IntVar(&limit, "limit", matching.DefaultLimit, "maximum number of matches")
	_ = cmd.MarkFlagRequired("criteria")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the active matching rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := matching.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rules)
		},
	}
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
