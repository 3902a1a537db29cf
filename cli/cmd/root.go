// ABOUTME: Root command for the acreditaciones CLI
// ABOUTME: Handles global flags and configuration

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	portalURL  string
	jsonOutput bool
)

const defaultPortalURL = "http://localhost:8080"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "acreditaciones",
	Short: "CLI for the Acreditaciones portal",
	Long: `acreditaciones checks the accreditation API and a running portal.

Environment Variables:
  ACREDITACIONES_PORTAL_URL  Portal URL (default: http://localhost:8080)
  ACREDITACIONES_API_URL     Accreditation API URL (falls back to API_BASE_URL)
  API_TEST_DNI               DNI used by test-api
  API_TEST_PASSWORD          Password used by test-api
  JWT_SECRET                 Secret used by token`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&portalURL, "portal-url", "", "Portal URL (overrides ACREDITACIONES_PORTAL_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// GetPortalURL returns the portal URL from flag, env, or default (in priority order)
func GetPortalURL() string {
	if portalURL != "" {
		return portalURL
	}
	if envURL := os.Getenv("ACREDITACIONES_PORTAL_URL"); envURL != "" {
		return envURL
	}
	return defaultPortalURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// envOr returns the first non-empty environment variable among keys.
func envOr(fallback string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return fallback
}
