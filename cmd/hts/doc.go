package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/spf13/cobra"
)

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage the reference document",
		Long: `Load, replace, inspect or clear the reference document that compliance
checks and provision lookups are grounded on. Only one document is active
at a time; loading a new one replaces it.`,
	}

	cmd.AddCommand(docLoadCmd())
	cmd.AddCommand(docPasteCmd())
	cmd.AddCommand(docClearCmd())
	cmd.AddCommand(docScanCmd())
	cmd.AddCommand(docShowCmd())

	return cmd
}

func docLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a PDF or text file as the reference document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			ref, err := s.ctrl.LoadDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Loaded %s", ref.Name)))
			printOut(cmd, cli.RenderReference(ref))
			return nil
		},
	}
	addPasscodeFlag(cmd)
	return cmd
}

func docPasteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paste [text|-]",
		Short: "Use pasted text as the reference document",
		Long: `Use text as the reference document. With no argument or "-" the text
is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")

			var text string
			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				data, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				text = string(data)
			} else {
				text = strings.Join(args, " ")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			ref, err := s.ctrl.PasteText(cmd.Context(), name, text)
			if err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Loaded %s", ref.Name)))
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name for the pasted text")
	addPasscodeFlag(cmd)
	return cmd
}

func docClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the reference document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			if err := s.ctrl.ClearDocument(cmd.Context()); err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess("Reference document cleared"))
			return nil
		},
	}
	addPasscodeFlag(cmd)
	return cmd
}

func docScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Extract the HTS headings mentioned in the reference document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			headings, err := s.ctrl.ScanHeadings(cmd.Context())
			if err != nil {
				return err
			}
			printOut(cmd, cli.RenderHeadings(headings, markdown(s.ctrl)))
			return nil
		},
	}
	addPasscodeFlag(cmd)
	return cmd
}

func docShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the reference document and its headings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ref := s.ctrl.Snapshot().Reference
			printOut(cmd, cli.RenderReference(ref))
			if ref != nil && len(ref.ExtractedHeadings) > 0 {
				printOut(cmd, cli.RenderHeadings(ref.ExtractedHeadings, markdown(s.ctrl)))
			}
			return nil
		},
	}
}
