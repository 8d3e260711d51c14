package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fxledger/fxledger/internal/infrastructure/config"
	"github.com/fxledger/fxledger/internal/infrastructure/logger"
	"github.com/fxledger/fxledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fxledger-cli",
		Short: "fxledger CLI tool",
		Long:  `A command line interface for interacting with the fxledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the fxledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(assetCmd())
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(accountCmd())
	rootCmd.AddCommand(moveCmd())
	rootCmd.AddCommand(completeCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func assetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Asset operations",
	}

	var precision int32
	addCmd := &cobra.Command{
		Use:   "add CODE",
		Short: "Register an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodPost, "/api/v1/assets", map[string]any{
				"code":      args[0],
				"precision": precision,
			})
		},
	}
	addCmd.Flags().Int32Var(&precision, "precision", 2, "Decimal digits of the asset")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/assets", nil)
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func rateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Exchange rate operations",
	}

	setCmd := &cobra.Command{
		Use:   "set FROM TO VALUE",
		Short: "Record an exchange rate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid rate value: %w", err)
			}
			return apiCall(http.MethodPost, "/api/v1/rates", map[string]any{
				"from":  args[0],
				"to":    args[1],
				"value": value,
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get FROM TO",
		Short: "Resolve the current rate for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/rates/"+args[0]+"/"+args[1], nil)
		},
	}

	cmd.AddCommand(setCmd, getCmd)
	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	var (
		accountType string
		note        string
	)
	addCmd := &cobra.Command{
		Use:   "add CODE ASSET",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodPost, "/api/v1/accounts", map[string]any{
				"code":  args[0],
				"asset": args[1],
				"type":  accountType,
				"note":  note,
			})
		},
	}
	addCmd.Flags().StringVar(&accountType, "type", "current", "Account type")
	addCmd.Flags().StringVar(&note, "note", "", "Account note")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/accounts", nil)
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance CODE",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance", nil)
		},
	}

	statementCmd := &cobra.Command{
		Use:   "statement CODE",
		Short: "Show an account statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/accounts/"+args[0]+"/statement", nil)
		},
	}

	cmd.AddCommand(addCmd, listCmd, balanceCmd, statementCmd)
	return cmd
}

func moveCmd() *cobra.Command {
	var (
		tag     string
		note    string
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "move DEBIT CREDIT AMOUNT",
		Short: "Move value between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			return apiCall(http.MethodPost, "/api/v1/moves", map[string]any{
				"debit":   args[0],
				"credit":  args[1],
				"amount":  amount,
				"tag":     tag,
				"note":    note,
				"pending": pending,
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Movement tag")
	cmd.Flags().StringVar(&note, "note", "", "Movement note")
	cmd.Flags().BoolVar(&pending, "pending", false, "Leave the movement uncompleted")
	return cmd
}

func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID...",
		Short: "Complete pending postings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodPost, "/api/v1/postings/complete", map[string]any{
				"ids": args,
			})
		},
	}
}

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove deleted postings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodPost, "/api/v1/postings/purge", nil)
		},
	}
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balances converted to the base asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiCall(http.MethodGet, "/api/v1/summary", nil)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema operations",
	}

	var path string
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
			return postgres.RunMigrations(cfg.DatabaseURL, path, log)
		},
	}
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
			return postgres.RunMigrationsDown(cfg.DatabaseURL, path, log)
		},
	}
	cmd.PersistentFlags().StringVar(&path, "path", "migrations", "Migrations directory")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

// apiCall performs one request against the API and prints the JSON
// response.
func apiCall(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(data))
	}

	if len(data) > 0 {
		var pretty any
		if err := json.Unmarshal(data, &pretty); err == nil {
			printJSON(pretty)
			return nil
		}
		fmt.Println(string(data))
	}

	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
