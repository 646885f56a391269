package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/Veraticus/hts-derivatives/internal/config"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/spf13/cobra"
)

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "Manage manual override entries",
		Long: `Manual entries are rules for specific HTS codes or ranges that always
count as derivative matches, whatever the reference document says.`,
	}

	cmd.AddCommand(entriesListCmd())
	cmd.AddCommand(entriesAddCmd())
	cmd.AddCommand(entriesUpdateCmd())
	cmd.AddCommand(entriesDeleteCmd())
	cmd.AddCommand(entriesImportCmd())
	cmd.AddCommand(entriesExportCmd())

	return cmd
}

func entriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List manual entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			printOut(cmd, cli.RenderEntries(s.ctrl.Entries()))
			return nil
		},
	}
}

func addEntryFlags(cmd *cobra.Command) {
	cmd.Flags().String("code", "", "HTS code or range (e.g. 7604.10 or 7604.10-7606.90)")
	cmd.Flags().String("category", "", "derivative category")
	cmd.Flags().String("rule", "", "rule detail")
	cmd.Flags().String("metal", "", "metal type (Aluminum, Steel, Both)")
}

// applyEntryFlags copies the entry flags that were set onto entry. It
// reports whether any were set.
func applyEntryFlags(cmd *cobra.Command, entry *model.ManualEntry) (bool, error) {
	changed := false
	if cmd.Flags().Changed("code") {
		entry.Code, _ = cmd.Flags().GetString("code")
		changed = true
	}
	if cmd.Flags().Changed("category") {
		entry.Category, _ = cmd.Flags().GetString("category")
		changed = true
	}
	if cmd.Flags().Changed("rule") {
		entry.Description, _ = cmd.Flags().GetString("rule")
		changed = true
	}
	if cmd.Flags().Changed("metal") {
		raw, _ := cmd.Flags().GetString("metal")
		metal, err := model.ParseMetalType(raw)
		if err != nil {
			return changed, err
		}
		entry.MetalType = metal
		changed = true
	}
	return changed, nil
}

func entriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual entry",
		Long: `Add a manual entry. Missing fields are prompted for on a terminal.

Example:
  hts entries add --code 7604.10 --category "Aluminum bars" \
    --rule "All bars and rods" --metal aluminum`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entry model.ManualEntry
			if _, err := applyEntryFlags(cmd, &entry); err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			incomplete := entry.Code == "" || entry.Category == "" || entry.Description == "" || entry.MetalType == ""
			if incomplete && cli.IsStdinTTY() {
				entry, err = cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).PromptEntry(cmd.Context(), entry)
				if err != nil {
					return err
				}
			}

			added, err := s.ctrl.AddEntry(cmd.Context(), entry.Code, entry.Category, entry.Description, entry.MetalType)
			if err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Added entry %s for %s", added.ID, added.Code)))
			return nil
		},
	}
	addEntryFlags(cmd)
	addPasscodeFlag(cmd)
	return cmd
}

func entriesUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a manual entry",
		Long: `Update a manual entry by ID or unique ID prefix. Only the flags given
are changed; with no flags the fields are prompted for on a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			entry, err := s.ctrl.FindEntry(args[0])
			if err != nil {
				return err
			}

			changed, err := applyEntryFlags(cmd, &entry)
			if err != nil {
				return err
			}
			if !changed {
				if !cli.IsStdinTTY() {
					return fmt.Errorf("nothing to update: pass --code, --category, --rule or --metal")
				}
				entry, err = cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).PromptEntry(cmd.Context(), entry)
				if err != nil {
					return err
				}
			}

			if err := s.ctrl.UpdateEntry(cmd.Context(), entry); err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Updated entry %s", entry.ID)))
			return nil
		},
	}
	addEntryFlags(cmd)
	addPasscodeFlag(cmd)
	return cmd
}

func entriesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a manual entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			entry, err := s.ctrl.FindEntry(args[0])
			if err != nil {
				return err
			}

			if !yes && cli.IsStdinTTY() {
				ok, err := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).
					Confirm(cmd.Context(), fmt.Sprintf("Delete entry %s (%s, %s)?", entry.Code, entry.Category, entry.MetalType))
				if err != nil {
					return err
				}
				if !ok {
					printOut(cmd, cli.FormatInfo("Nothing deleted"))
					return nil
				}
			}

			if err := s.ctrl.DeleteEntry(cmd.Context(), entry.ID); err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted entry %s", entry.ID)))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	addPasscodeFlag(cmd)
	return cmd
}

func entriesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import manual entries from YAML",
		Long: `Import manual entries from a YAML file in the format written by
"hts entries export". Every entry is validated before anything changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := login(cmd, s.ctrl); err != nil {
				return err
			}

			var n int
			if args[0] == "-" {
				n, err = s.ctrl.ImportEntries(cmd.Context(), cmd.InOrStdin(), replace)
			} else {
				f, openErr := os.Open(config.ExpandPath(args[0]))
				if openErr != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], openErr)
				}
				defer func() { _ = f.Close() }()
				n, err = s.ctrl.ImportEntries(cmd.Context(), f, replace)
			}
			if err != nil {
				return err
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d entries", n)))
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "replace all existing entries instead of merging")
	addPasscodeFlag(cmd)
	return cmd
}

func entriesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export manual entries as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 0 || args[0] == "-" {
				return s.ctrl.ExportEntries(cmd.OutOrStdout())
			}

			f, err := os.Create(config.ExpandPath(args[0]))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := s.ctrl.ExportEntries(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			printOut(cmd, cli.FormatSuccess(fmt.Sprintf("Exported %d entries to %s", len(s.ctrl.Entries()), args[0])))
			return nil
		},
	}
}
