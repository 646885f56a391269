package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/spf13/cobra"
)

func providerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provider [name]",
		Short: "Show or switch the LLM provider",
		Long: `With no argument, list the configured providers and mark the active one.
With a name (gemini or openai), switch to it. The choice is remembered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 1 {
				if err := s.ctrl.SwitchProvider(cmd.Context(), args[0]); err != nil {
					return err
				}
				printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Provider set to %s", strings.ToLower(args[0]))))
				return nil
			}

			current := s.ctrl.Snapshot().Provider
			var configured []string
			for _, c := range s.settings.LLM {
				if c.APIKey != "" {
					configured = append(configured, c.Provider)
				}
			}
			if len(configured) == 0 {
				printOut(cmd, cli.FormatWarning("No provider configured. Set GEMINI_API_KEY or OPENAI_API_KEY."))
				return nil
			}
			for _, name := range configured {
				marker := "  "
				if name == current {
					marker = cli.SuccessStyle.Render("● ")
				}
				printOut(cmd, marker+name)
			}
			return nil
		},
	}
}

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme",
		Short: "Toggle between the light and dark theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			theme := s.ctrl.ToggleTheme(cmd.Context())
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Theme set to %s", theme)))
			return nil
		},
	}
}
