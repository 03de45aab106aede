package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harbourkey/querycache/cachehttp"
)

var (
	serverURL string
	key       string
	prefix    string
	all       bool
)

var rootCmd = &cobra.Command{
	Use:   "cachectl",
	Short: "Admin client for the query cache invalidation endpoint",
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Invalidate a cached key, a prefix, or everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !all && key == "" && prefix == "" {
			return fmt.Errorf("one of --all, --key or --prefix is required")
		}
		body, err := json.Marshal(cachehttp.InvalidateRequest{
			Key:           key,
			Prefix:        prefix,
			InvalidateAll: all,
		})
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 15 * time.Second}
		resp, err := client.Post(serverURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("posting invalidation: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	invalidateCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080/admin/cache/invalidate", "invalidation endpoint URL")
	invalidateCmd.Flags().StringVar(&key, "key", "", "logical key (or hash, in Hash display mode) to invalidate")
	invalidateCmd.Flags().StringVar(&prefix, "prefix", "", "logical prefix to invalidate")
	invalidateCmd.Flags().BoolVar(&all, "all", false, "invalidate everything")
	rootCmd.AddCommand(invalidateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
