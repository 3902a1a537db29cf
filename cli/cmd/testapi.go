// ABOUTME: test-api command for the acreditaciones CLI
// ABOUTME: Probes the accreditation API directly: connectivity, login and protected endpoints

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markalston/acreditaciones-portal/services"
	"github.com/spf13/cobra"
)

var (
	testAPIURL      string
	testAPITimeout  time.Duration
	testAPIDNI      string
	testAPIPassword string
	testAPIVerbose  bool
)

var testAPICmd = &cobra.Command{
	Use:   "test-api",
	Short: "Probe the accreditation API",
	Long: `Run the diagnostics suite against the accreditation API: basic connectivity,
login with the test credentials, and every protected endpoint with the issued token.

Exit codes:
  0 - All probes passed
  1 - One or more probes failed
  2 - Error (missing API URL)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTestAPI(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(testAPICmd)
	testAPICmd.Flags().StringVar(&testAPIURL, "url", "", "Accreditation API URL (overrides ACREDITACIONES_API_URL and API_BASE_URL)")
	testAPICmd.Flags().DurationVar(&testAPITimeout, "timeout", 10*time.Second, "Per-request timeout")
	testAPICmd.Flags().StringVar(&testAPIDNI, "dni", "", "DNI to log in with (overrides API_TEST_DNI)")
	testAPICmd.Flags().StringVar(&testAPIPassword, "password", "", "Password to log in with (overrides API_TEST_PASSWORD)")
	testAPICmd.Flags().BoolVarP(&testAPIVerbose, "verbose", "v", false, "Print response bodies")
}

// runTestAPI executes the probes and returns exit code
func runTestAPI(ctx context.Context, w io.Writer) int {
	baseURL := testAPIURL
	if baseURL == "" {
		baseURL = envOr("", "ACREDITACIONES_API_URL", "API_BASE_URL")
	}
	if baseURL == "" {
		fmt.Fprintln(w, "Error: no API URL. Use --url or set ACREDITACIONES_API_URL.")
		return 2
	}

	dni := testAPIDNI
	if dni == "" {
		dni = envOr("12345678", "API_TEST_DNI")
	}
	password := testAPIPassword
	if password == "" {
		password = envOr("password123", "API_TEST_PASSWORD")
	}

	api := services.NewAPIClient(services.APIClientConfig{
		BaseURL: baseURL,
		Timeout: testAPITimeout,
	})
	report := services.NewDiagnostics(api, dni, password).Run(ctx)

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		fmt.Fprint(w, formatReportHuman(api.BaseURL(), report, testAPIVerbose))
	}

	if !report.Success {
		return 1
	}
	return 0
}

// formatReportHuman prints one line per probe and the summary.
func formatReportHuman(baseURL string, report services.DiagnosticReport, verbose bool) string {
	out := fmt.Sprintf("API: %s\n\n", baseURL)
	for _, r := range report.Results {
		mark := "FAIL"
		if r.Success {
			mark = "OK  "
		}
		out += fmt.Sprintf("[%s] %-35s %3d  %s (%s)\n", mark, r.Name, r.StatusCode, r.Message, r.Duration.Round(time.Millisecond))
		if verbose && len(r.Data) > 0 {
			out += fmt.Sprintf("       %s\n", r.Data)
		}
	}
	out += fmt.Sprintf("\n%s\n", report.Message)
	return out
}
