package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/cli"
	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <code>",
		Short: "Check whether an HTS code is an aluminum or steel derivative",
		Long: `Check an HTS code against the reference document and the manual
entries. Manual entries that cover the code always count as matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, app.ModeCompliance, args[0])
		},
	}
	cmd.Flags().Bool("json", false, "print the raw result as JSON")
	return cmd
}

func lookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <code>",
		Short: "Look up how the reference document describes an HTS provision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, app.ModeLookup, args[0])
		},
	}
	cmd.Flags().Bool("json", false, "print the raw result as JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, mode app.SearchMode, code string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	s.ctrl.SetSearchMode(mode)
	if err := s.ctrl.Search(cmd.Context(), code); err != nil {
		if errors.Is(err, common.ErrNotReady) && strings.TrimSpace(code) != "" {
			if mode == app.ModeLookup {
				return fmt.Errorf("%w: load a reference document first (hts doc load)", err)
			}
			return fmt.Errorf("%w: load a reference document or add manual entries first", err)
		}
		return err
	}

	state := s.ctrl.Snapshot()
	if asJSON {
		var v any = state.Result
		if mode == app.ModeLookup {
			v = state.Provision
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	switch {
	case state.Result != nil:
		printOut(cmd, cli.RenderAnalysis(state.Query, *state.Result))
	case state.Provision != nil:
		printOut(cmd, cli.RenderProvision(*state.Provision, markdown(s.ctrl)))
	}
	return nil
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file|->",
		Short: "Check many HTS codes from a file",
		Long: `Check every code in a file (one per line, or comma separated) against
the reference document and manual entries. Lines starting with # are
ignored. Failed codes are reported and do not stop the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().Int("concurrency", 0, "number of codes checked at once (default from batch.concurrency)")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	codes, err := app.ReadCodes(strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		printOut(cmd, cli.FormatInfo("No codes to check"))
		return nil
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	concurrency := s.settings.BatchConcurrency
	if cmd.Flags().Changed("concurrency") {
		concurrency, _ = cmd.Flags().GetInt("concurrency")
	}

	showProgress := !noProgress && cli.IsStdoutTTY()
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), showProgress)

	opts := app.BatchOptions{Concurrency: concurrency}
	var progress *cli.BatchProgress
	if showProgress {
		progress = cli.NewBatchProgress(cmd.ErrOrStderr(), len(codes))
		opts.OnProgress = progress.Update
	}

	results, err := s.ctrl.BatchClassify(ctx, codes, opts)
	if progress != nil {
		progress.Finish()
	}
	if len(results) > 0 && (err == nil || handler.WasInterrupted()) {
		printOut(cmd, cli.RenderBatch(results))
	}
	return err
}
