package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/platform/config"
)

// Dev-only HS256 token minter for local requests against AUTH_MODE=jwt.
//
//	devtoken --sub alice
//	curl -H "Authorization: Bearer $(devtoken --sub alice)" localhost:8080/profiles/me

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Long: `Mint a bearer token signed with JWT_SECRET.

Issuer, audience and secret default to JWT_ISSUER, JWT_AUDIENCE and JWT_SECRET
(a local .env file is read when present).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sub, _ := cmd.Flags().GetString("sub")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			issuer, _ := cmd.Flags().GetString("issuer")
			audience, _ := cmd.Flags().GetString("audience")
			secret, _ := cmd.Flags().GetString("secret")

			if sub == "" {
				return fmt.Errorf("--sub is required")
			}
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}

			tok, err := jwtverifier.Mint(config.JWTConfig{
				Issuer:   issuer,
				Audience: audience,
				Secret:   secret,
			}, sub, time.Now().UTC(), ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	_ = godotenv.Load()
	cmd.Flags().String("sub", "", "token subject (profile id)")
	cmd.Flags().Duration("ttl", 30*time.Minute, "token lifetime")
	cmd.Flags().String("issuer", getenv("JWT_ISSUER", "dev"), "iss claim")
	cmd.Flags().String("audience", getenv("JWT_AUDIENCE", "profile-privacy-api"), "aud claim")
	cmd.Flags().String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	return cmd
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
