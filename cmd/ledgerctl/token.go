package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yukikurage/synergy-api/internal/auth"
)

var (
	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a development bearer token for a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		token, err := verifier.IssueToken(auth.Identity{
			SubjectID:   args[0],
			Email:       tokenEmail,
			DisplayName: tokenName,
		}, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
