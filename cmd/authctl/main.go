// Package main implements the authctl CLI for manual operations against
// a running authd server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the authd HTTP server
	serverURL string
	// invoke flags
	invokeMethod string
	invokePath   string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "authctl",
	Short: "CLI for authd server operations",
	Long: `authctl is a command-line interface for interacting with the authd server.
It provides commands for invoking the handler and checking server health.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "authd server URL")
	invokeCmd.Flags().StringVar(&invokeMethod, "method", "GET", "HTTP method to report in the event")
	invokeCmd.Flags().StringVar(&invokePath, "path", "/", "request path to report in the event")
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(healthCmd)
}

// invokeCmd performs one handler invocation
var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Invoke the auth handler once",
	Long: `Send one invocation event to the authd server and print the response.

Examples:
  # Invoke with defaults (GET /)
  authctl invoke

  # Invoke with an explicit method and path
  authctl invoke --method POST --path /invoke

  # Use a different server
  authctl invoke --server http://localhost:9090`,
	Args: cobra.NoArgs,
	RunE: runInvoke,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check authd server health",
	Long: `Check the health status of the authd server.

Examples:
  # Check health
  authctl health

  # Check health on a different server
  authctl health --server http://localhost:9090`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

// InvokeEvent matches internal/auth Event
type InvokeEvent struct {
	HTTPMethod string `json:"httpMethod,omitempty"`
	Path       string `json:"path,omitempty"`
}

// HealthResponse matches internal/http HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runInvoke handles the invoke command
func runInvoke(cmd *cobra.Command, args []string) error {
	reqJSON, err := json.Marshal(InvokeEvent{
		HTTPMethod: invokeMethod,
		Path:       invokePath,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/invoke", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	fmt.Println(string(body))
	return nil
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("authd is %s (%s)\n", health.Status, serverURL)
	return nil
}
