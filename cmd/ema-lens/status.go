package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the assistant service is reachable",
	Long: `Check the health of the assistant service and show the session it
keeps for this client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Server:"), cfg.ServerURL)

		ctx, cancel := withRequestTimeout(cmd.Context(), cfg)
		defer cancel()

		health, err := client.Health(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ Service unreachable"))
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintf(out, "%s %s (%s)\n", successStyle.Render("✓ Service"), health.Status, health.Service)

		info, err := client.SessionInfo(ctx)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("✗ Session info unavailable"))
			return fmt.Errorf("session info failed: %w", err)
		}

		lastActivity := "never"
		if info.LastActivity != nil {
			lastActivity = *info.LastActivity
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Session:"), info.SessionID)
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Messages:"), info.MessageCount)
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Last activity:"), lastActivity)
		return nil
	},
}
