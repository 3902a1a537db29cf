// ABOUTME: Health command for the acreditaciones CLI
// ABOUTME: Reports a running portal's upstream and cache status

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/markalston/acreditaciones-portal/cli/internal/client"
	"github.com/markalston/acreditaciones-portal/models"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running portal",
	Long: `Check a running portal and report whether it can reach the accreditation API.

Exit codes:
  0 - Portal and upstream API are healthy
  1 - Portal is degraded (upstream unreachable)
  2 - Error (portal unreachable or invalid response)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GetPortalURL()
	c := client.New(url)

	resp, err := c.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}

	if resp.Status != "ok" {
		return 1
	}
	return 0
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *models.HealthResponse) string {
	return fmt.Sprintf(`Portal:       %s
Status:       %s
Upstream API: %s
Cache:        %v (hits %v, misses %v, errors %v)`,
		url, resp.Status, resp.Upstream,
		resp.Cache["backend"], resp.Cache["hits"], resp.Cache["misses"], resp.Cache["errors"])
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *models.HealthResponse) string {
	output := map[string]any{
		"portal":   url,
		"status":   resp.Status,
		"upstream": resp.Upstream,
		"cache":    resp.Cache,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
