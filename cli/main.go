package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL  string
	adminToken string
	Version    = "dev"
)

type ReputationEntry struct {
	ID        uint      `json:"id"`
	IPPattern string    `json:"ip_pattern"`
	Priority  int       `json:"priority"`
	IsActive  bool      `json:"is_active"`
	Reason    string    `json:"reason"`
	BlockedBy string    `json:"blocked_by"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type AccessAttempt struct {
	ClientIP  string    `json:"client_ip"`
	Endpoint  string    `json:"endpoint"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Gatehouse - Admission control for OAuth2 device flows",
		Long:  "Manage IP reputation lists and inspect admission decisions on a Gatehouse server",
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Gatehouse server URL")
	rootCmd.PersistentFlags().StringVarP(&adminToken, "token", "t", os.Getenv("GATEHOUSE_ADMIN_TOKEN"), "Admin bearer token")

	rootCmd.AddCommand(
		reputationCmd("blacklist", "Manage blacklisted IP patterns", "Block"),
		reputationCmd("whitelist", "Manage whitelisted IP patterns", "Admit"),
		attemptsCmd(),
		statusCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func reputationCmd(kind, short, verb string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
	}
	cmd.AddCommand(
		listCmd(kind),
		addCmd(kind, verb+" an IP or CIDR range"),
		rmCmd(kind),
	)
	return cmd
}

func listCmd(kind string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + kind + " entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []ReputationEntry
			if err := apiGet("/v1/admin/"+kind, &entries); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATTERN\tPRIORITY\tACTIVE\tREASON")
			fmt.Fprintln(w, "--\t-------\t--------\t------\t------")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%s\n", e.ID, e.IPPattern, e.Priority, e.IsActive, e.Reason)
			}
			w.Flush()
			return nil
		},
	}
}

func addCmd(kind, short string) *cobra.Command {
	var priority int
	var reason string

	cmd := &cobra.Command{
		Use:   "add [ip-or-cidr]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"ip_pattern": args[0],
				"priority":   priority,
				"reason":     reason,
				"actor":      actorName(),
			}
			var created ReputationEntry
			if err := apiPost("/v1/admin/"+kind, payload, &created); err != nil {
				return err
			}
			fmt.Printf("Created %s entry %d for %s\n", kind, created.ID, created.IPPattern)
			return nil
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Resolution priority for overlapping patterns")
	cmd.Flags().StringVar(&reason, "reason", "", "Why this entry exists")
	return cmd
}

func rmCmd(kind string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Deactivate a " + kind + " entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiDelete("/v1/admin/" + kind + "/" + args[0]); err != nil {
				return err
			}
			fmt.Printf("Deactivated %s entry %s\n", kind, args[0])
			return nil
		},
	}
}

func attemptsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Show recent admission decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var attempts []AccessAttempt
			if err := apiGet(fmt.Sprintf("/v1/admin/attempts?limit=%d", limit), &attempts); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tIP\tENDPOINT\tRESULT\tREASON")
			fmt.Fprintln(w, "----\t--\t--------\t------\t------")
			for _, a := range attempts {
				when := time.Since(a.CreatedAt).Round(time.Second)
				fmt.Fprintf(w, "%s ago\t%s\t%s\t%s\t%s\n", when, a.ClientIP, a.Endpoint, a.Result, a.Reason)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of attempts to show")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show admission summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			var attempts []AccessAttempt
			if err := apiGet("/v1/admin/attempts?limit=500", &attempts); err != nil {
				return err
			}
			var stats struct {
				Keys int `json:"keys"`
			}
			if err := apiGet("/v1/admin/ratelimits", &stats); err != nil {
				return err
			}

			counts := map[string]int{}
			for _, a := range attempts {
				counts[a.Result]++
			}

			fmt.Printf("Gatehouse Status\n")
			fmt.Printf("================\n\n")
			fmt.Printf("Recent attempts:      %d\n", len(attempts))
			fmt.Printf("Allowed:              %d\n", counts["ALLOWED"])
			fmt.Printf("Blacklist denials:    %d\n", counts["BLOCKED_BLACKLIST"])
			fmt.Printf("Whitelist denials:    %d\n", counts["BLOCKED_NOT_WHITELISTED"])
			fmt.Printf("Rate limited:         %d\n", counts["RATE_LIMITED"])
			fmt.Printf("Active limit windows: %d\n", stats.Keys)

			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gatehouse version %s\n", Version)
		},
	}
}

func actorName() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

func apiGet(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return err
	}
	return apiDo(req, http.StatusOK, out)
}

func apiPost(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(req, http.StatusCreated, out)
}

func apiDelete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, serverURL+path, nil)
	if err != nil {
		return err
	}
	return apiDo(req, http.StatusNoContent, nil)
}

func apiDo(req *http.Request, wantStatus int, out any) error {
	if adminToken == "" {
		return fmt.Errorf("admin token required (set --token or GATEHOUSE_ADMIN_TOKEN)")
	}
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
