package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy or degraded, non-zero otherwise.

Exit codes:
  0 - Server is healthy (or degraded: optional dependencies down)
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := healthcheckURL
			if url == "" {
				url = defaultHealthURL()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(healthcheckTimeout)*time.Second)
			defer cancel()

			resp, err := performHealthCheck(ctx, http.DefaultClient, url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
				os.Exit(exitCode(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", resp.Status)
			return nil
		},
	}

	healthcheckTimeout int
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
}

// HealthResponse is the subset of the /health report this command reads.
type HealthResponse struct {
	Status string                    `json:"status"`
	Checks map[string]map[string]any `json:"checks,omitempty"`
}

// invalidResponseError marks a body that is not a health report.
type invalidResponseError struct{ err error }

func (e invalidResponseError) Error() string { return "invalid response: " + e.err.Error() }
func (e invalidResponseError) Unwrap() error { return e.err }

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// performHealthCheck accepts "healthy" and "degraded"; anything else,
// including a non-200 answer, is an error.
func performHealthCheck(ctx context.Context, client *http.Client, url string) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return HealthResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return HealthResponse{}, fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return HealthResponse{}, invalidResponseError{err: err}
	}
	switch health.Status {
	case "healthy", "degraded":
		return health, nil
	case "":
		return health, invalidResponseError{err: fmt.Errorf("missing status")}
	default:
		return health, fmt.Errorf("unhealthy: status=%s", health.Status)
	}
}

func exitCode(err error) int {
	var invalid invalidResponseError
	if errors.As(err, &invalid) {
		return 2
	}
	return 1
}
