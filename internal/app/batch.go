package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures BatchClassify.
type BatchOptions struct {
	// OnProgress is called after each code completes, from worker goroutines.
	OnProgress  func(done, total int)
	Retry       common.RetryOptions
	Concurrency int
}

// BatchResult is the outcome for one code. Exactly one of Result and Err is set.
type BatchResult struct {
	Result *model.AnalysisResult
	Err    error
	Code   string
}

// ReadCodes reads one code per line (commas also separate codes). Blank lines
// and lines starting with # are skipped.
func ReadCodes(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Split(line, ",") {
			if code := strings.TrimSpace(field); code != "" {
				codes = append(codes, code)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}
	return codes, nil
}

// BatchClassify runs compliance checks for many codes against the current
// reference and entries. Failures are reported per code and do not stop the
// batch; transport errors are retried. Results keep input order and do not
// enter the search history.
func (c *Controller) BatchClassify(ctx context.Context, codes []string, opts BatchOptions) ([]BatchResult, error) {
	c.mu.Lock()
	if c.state.Reference == nil && len(c.state.Entries) == 0 {
		c.mu.Unlock()
		return nil, common.ErrNotReady
	}
	ref := c.state.Reference.Clone()
	entries := append([]model.ManualEntry(nil), c.state.Entries...)
	provider, err := c.providerLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}
	}

	results := make([]BatchResult, len(codes))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, code := range codes {
		g.Go(func() error {
			results[i] = c.classifyOne(gctx, provider, ref, entries, code, retry)
			if opts.OnProgress != nil {
				opts.OnProgress(int(done.Add(1)), len(codes))
			}
			// Only cancellation aborts the group.
			if err := gctx.Err(); err != nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	found := 0
	for _, r := range results {
		if r.Result != nil && r.Result.Found {
			found++
		}
	}
	c.logger.Info("Batch classification complete", "codes", len(codes), "found", found, "provider", provider.Name())
	return results, nil
}

func (c *Controller) classifyOne(ctx context.Context, p llm.Provider, ref *model.ReferenceContext, entries []model.ManualEntry, code string, retry common.RetryOptions) BatchResult {
	code = strings.TrimSpace(code)
	if err := model.ValidateHTSCode(code); err != nil {
		return BatchResult{Code: code, Err: err}
	}

	var result model.AnalysisResult
	err := common.WithRetry(ctx, func() error {
		var callErr error
		result, callErr = Classify(ctx, p, ref, entries, code)
		return callErr
	}, retry)
	if err != nil {
		c.logger.Warn("Batch classification failed", "code", code, "error", err)
		return BatchResult{Code: code, Err: err}
	}
	return BatchResult{Code: code, Result: &result}
}
