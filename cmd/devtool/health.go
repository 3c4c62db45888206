package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/osse101/FieldSync_Go/internal/handler"
)

const slowResponse = time.Second

type HealthCheckCommand struct{}

func (c *HealthCheckCommand) Name() string {
	return "health-check"
}

func (c *HealthCheckCommand) Description() string {
	return "Check /healthz and /readyz of a running server [base-url]"
}

func (c *HealthCheckCommand) Run(ctx context.Context, args []string) error {
	base := getEnv("FIELDSYNC_URL", "http://localhost:8080")
	if len(args) > 0 {
		base = args[0]
	}
	base = strings.TrimRight(base, "/")

	PrintHeader(fmt.Sprintf("Health Check (%s)", base))

	client := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/healthz", "/readyz"} {
		start := time.Now()
		if err := checkEndpoint(ctx, client, base+path); err != nil {
			PrintError("%s failed: %v", path, err)
			return err
		}
		if d := time.Since(start); d > slowResponse {
			PrintWarning("%s slow response time (%v)", path, d)
		} else {
			PrintSuccess("%s passed (%v)", path, d)
		}
	}
	return nil
}

// checkEndpoint fails on any non-200. A failing /readyz names the
// component (database or registry) in its body.
func checkEndpoint(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body handler.HealthResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Component != "" {
			return fmt.Errorf("status code %d: %s", resp.StatusCode, body.Message)
		}
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}
