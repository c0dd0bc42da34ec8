package main

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-lens/core/languages"
	"github.com/spf13/cobra"
)

var languagesRemote bool

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List translation languages",
	Long: `List the languages replies can be translated to. With --remote the
list is asked from the assistant service instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if !languagesRemote {
			for _, language := range languages.All() {
				fmt.Fprintf(out, "%-3s %-12s %s\n", language.Code, language.Name, language.Locale)
			}
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := withRequestTimeout(cmd.Context(), cfg)
		defer cancel()

		remote, err := client.Languages(ctx)
		if err != nil {
			return fmt.Errorf("failed to list languages: %w", err)
		}

		codes := make([]string, 0, len(remote))
		for code := range remote {
			codes = append(codes, code)
		}
		slices.Sort(codes)

		for _, code := range codes {
			note := ""
			if !languages.IsSupported(code) {
				note = " (not supported by this client)"
			}
			fmt.Fprintf(out, "%-3s %s%s\n", code, remote[code], note)
		}
		return nil
	},
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesRemote, "remote", false, "Ask the assistant service")
}
