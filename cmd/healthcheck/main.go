package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/utleieskade/backend/internal/logger"
)

// HealthReport mirrors the body of GET /health.
type HealthReport struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

var timeout time.Duration

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "healthcheck [URL]",
		Short:         "Probe the backend health endpoint",
		Long:          `Exits non-zero unless the server and its database report ok. Suitable as a container HEALTHCHECK.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := defaultURL()
			if len(args) == 1 {
				url = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report, err := probe(ctx, http.DefaultClient, url)
			if err != nil {
				return err
			}
			logger.Info("Health check passed", map[string]interface{}{
				"url":       url,
				"version":   report.Version,
				"database":  report.Services.Database.Status,
				"timestamp": report.Timestamp,
			})
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Request timeout")
	return cmd
}

func defaultURL() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port + "/health"
}

// probe fetches url and fails unless both the server and the database are ok.
func probe(ctx context.Context, client *http.Client, url string) (*HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to health endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var report HealthReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("health check returned %s with an unreadable body: %w", resp.Status, err)
	}
	if report.Services.Database.Status != "ok" {
		if report.Services.Database.Error != "" {
			return &report, fmt.Errorf("database is %q: %s", report.Services.Database.Status, report.Services.Database.Error)
		}
		return &report, fmt.Errorf("database is %q", report.Services.Database.Status)
	}
	if resp.StatusCode != http.StatusOK || report.Status != "ok" {
		return &report, fmt.Errorf("health check failed with status %d (%s)", resp.StatusCode, report.Status)
	}
	return &report, nil
}
