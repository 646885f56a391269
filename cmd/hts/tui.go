package main

import (
	"github.com/Veraticus/hts-derivatives/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive search screen",
		Long: `Open the interactive search screen. Type an HTS code and press Enter.
Press ? for all shortcuts, including admin login (a) and heading scans (s).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inline, _ := cmd.Flags().GetBool("inline")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(cmd.Context(), s.ctrl, tui.WithAltScreen(!inline))
		},
	}
	cmd.Flags().Bool("inline", false, "render inline instead of on the alternate screen")
	return cmd
}
