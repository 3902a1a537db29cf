// ABOUTME: token command for the acreditaciones CLI
// ABOUTME: Issues signed test tokens accepted by a portal sharing the same secret

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/spf13/cobra"
)

var (
	tokenSecret    string
	tokenAlgorithm string
	tokenSubject   string
	tokenDNI       string
	tokenName      string
	tokenTTL       time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a test token",
	Long: `Issue a signed token for local testing. The portal accepts it when it is
configured with the same JWT_SECRET and JWT_ALGORITHM.`,
	Run: func(cmd *cobra.Command, args []string) {
		if exitCode := runToken(os.Stdout, time.Now()); exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (overrides JWT_SECRET)")
	tokenCmd.Flags().StringVar(&tokenAlgorithm, "algorithm", "", "HS256, HS384 or HS512 (overrides JWT_ALGORITHM)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "test_user", "User id placed in the sub claim")
	tokenCmd.Flags().StringVar(&tokenDNI, "dni", "12345678", "DNI claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "Test User", "Name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
}

// runToken prints a token and returns exit code
func runToken(w io.Writer, now time.Time) int {
	secret := tokenSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	algorithm := tokenAlgorithm
	if algorithm == "" {
		algorithm = envOr("HS256", "JWT_ALGORITHM")
	}

	verifier, err := services.NewTokenVerifier(services.TokenVerifierConfig{
		Secret:    secret,
		Algorithm: algorithm,
		TestTTL:   tokenTTL,
	})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	expires := now.Add(tokenTTL)
	token, err := verifier.Issue(services.TokenClaims{
		DNI:  tokenDNI,
		Name: tokenName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]any{
			"token":      token,
			"subject":    tokenSubject,
			"expires_at": expires.UTC().Format(time.RFC3339),
		}, "", "  ")
		fmt.Fprintln(w, string(data))
		return 0
	}

	fmt.Fprintln(w, token)
	return 0
}
