// Command replay posts a webhook fixture to a running server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"solana-pump-radar/internal/api"
	"solana-pump-radar/internal/config"
)

const defaultFixture = "fixtures/pumpfun-create.sample.json"

func main() {
	root := &cobra.Command{
		Use:          "replay [fixture]",
		Short:        "Replay a webhook fixture against a running server",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runReplay,
	}

	f := root.Flags()
	f.String("config", "", "config file path")
	f.String("server", "", "server base URL (default http://localhost<listen-addr>)")
	f.String("webhook-secret", "", "shared webhook bearer secret")
	f.String("listen-addr", ":3000", "server listen address, used when --server is empty")
	f.Duration("timeout", 10*time.Second, "request timeout")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	fixture := defaultFixture
	if len(args) == 1 {
		fixture = args[0]
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = "http://localhost" + cfg.ListenAddr
		if !strings.HasPrefix(cfg.ListenAddr, ":") {
			server = "http://" + cfg.ListenAddr
		}
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	body, err := os.ReadFile(fixture)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replaying fixture: %s\n", fixture)
	return replay(ctx, http.DefaultClient, strings.TrimRight(server, "/")+api.WebhookPath, cfg.WebhookSecret, body, out)
}

// replay sends body to url and prints the response. A non-2xx status is an error.
func replay(ctx context.Context, client *http.Client, url, secret string, body []byte, out io.Writer) error {
	if !json.Valid(body) {
		return fmt.Errorf("fixture is not valid JSON")
	}
	fmt.Fprintf(out, "Transactions: %d\n", countTransactions(body))
	fmt.Fprintf(out, "Sending to: %s\n", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post fixture: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	fmt.Fprintf(out, "Response status: %d\n", resp.StatusCode)
	var pretty bytes.Buffer
	if json.Indent(&pretty, respBody, "", "  ") == nil {
		respBody = pretty.Bytes()
	}
	fmt.Fprintf(out, "Response body: %s\n", respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	fmt.Fprintln(out, "Replay successful")
	return nil
}

func countTransactions(body []byte) int {
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil {
		return len(arr)
	}
	return 1
}
