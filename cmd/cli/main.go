package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "centralledger-cli",
		Short:         "Central ledger CLI tool",
		Long:          `A command line interface for operating the central ledger position service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:3001", "Base URL of the central ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(positionsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(topicsCmd())
	rootCmd.AddCommand(proxyCmd(newProxyCache))

	return rootCmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the composite health of the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report struct {
				Status string `json:"status"`
			}
			body, status, err := request(http.MethodGet, "/health", nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &report); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printJSON(cmd.OutOrStdout(), json.RawMessage(body))
			if status != http.StatusOK || report.Status != "OK" {
				return fmt.Errorf("service is %s", report.Status)
			}
			return nil
		},
	}
}

func positionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Position operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <account> <currency>",
		Short: "Show a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(cmd.OutOrStdout(), positionPath(args[0], args[1], ""))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "changes <account> <currency>",
		Short: "List the change log of a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(cmd.OutOrStdout(), positionPath(args[0], args[1], "/changes"))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile <account> <currency>",
		Short: "Replay the change log and compare it with the stored position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, status, err := request(http.MethodGet, positionPath(args[0], args[1], "/reconcile"), nil)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("reconcile failed (status %d): %s", status, body)
			}

			var result struct {
				IsReconciled bool   `json:"is_reconciled"`
				Difference   string `json:"difference"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printJSON(cmd.OutOrStdout(), json.RawMessage(body))
			if !result.IsReconciled {
				return fmt.Errorf("position drifted by %s", result.Difference)
			}
			return nil
		},
	})

	var openingBalance string
	openCmd := &cobra.Command{
		Use:   "open <account> <currency>",
		Short: "Open a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(map[string]string{
				"account_id":      args[0],
				"currency":        args[1],
				"opening_balance": openingBalance,
			})
			body, status, err := request(http.MethodPost, "/api/v1/positions/", payload)
			if err != nil {
				return err
			}
			if status != http.StatusCreated {
				return fmt.Errorf("open failed (status %d): %s", status, body)
			}
			printJSON(cmd.OutOrStdout(), json.RawMessage(body))
			return nil
		},
	}
	openCmd.Flags().StringVar(&openingBalance, "balance", "0", "Opening balance")
	cmd.AddCommand(openCmd)

	return cmd
}

func positionPath(account, currency, suffix string) string {
	return "/api/v1/positions/" + url.PathEscape(account) + "/" + url.PathEscape(currency) + suffix
}

func getAndPrint(w io.Writer, path string) error {
	body, status, err := request(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", status, body)
	}
	printJSON(w, json.RawMessage(body))
	return nil
}

func request(method, path string, payload []byte) ([]byte, int, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func printJSON(w io.Writer, v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	fmt.Fprintln(w, string(out))
}
