package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// BatchProgress draws a progress bar for batch checks. Update is safe to call
// from worker goroutines.
type BatchProgress struct {
	bar *progressbar.ProgressBar
	mu  sync.Mutex
}

// NewBatchProgress creates a bar for total codes written to w.
func NewBatchProgress(w io.Writer, total int) *BatchProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Checking codes...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
	return &BatchProgress{bar: bar}
}

// Update moves the bar to done.
func (p *BatchProgress) Update(done, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Set(done)
}

// Finish completes the bar.
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
}
