package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCodes(t *testing.T) {
	input := `
# codes from the March shipment
7604.10
7306.30, 7308.90

  9903.85.08
`
	codes, err := ReadCodes(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"7604.10", "7306.30", "7308.90", "9903.85.08"}, codes)
}

// flakyBackend fails the first failures calls with a retryable error.
type flakyBackend struct {
	*llm.StubBackend
	failures atomic.Int32
}

func (f *flakyBackend) Generate(ctx context.Context, segments []prompt.Segment, schema llm.Schema) ([]byte, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, &common.BackendTransportError{Provider: "gemini", StatusCode: 503, Message: "overloaded"}
	}
	return f.StubBackend.Generate(ctx, segments, schema)
}

var fastRetry = common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

func TestBatchClassify(t *testing.T) {
	store := newMemStore()
	store.ref = textRef()
	stub := geminiStub().Respond(llm.AnalysisSchema, foundJSON)
	c := newTestController(t, store, stub)

	var mu sync.Mutex
	var progress []int
	codes := []string{"7604.10", "not-a-code", "7306.30", "7308.90"}

	results, err := c.BatchClassify(context.Background(), codes, BatchOptions{
		Concurrency: 2,
		Retry:       fastRetry,
		OnProgress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, len(codes), total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, codes[i], r.Code, "results keep input order")
	}
	require.NotNil(t, results[0].Result)
	assert.True(t, results[0].Result.Found)

	var validation *common.ValidationError
	require.ErrorAs(t, results[1].Err, &validation)
	assert.Nil(t, results[1].Result)

	assert.Len(t, stub.Calls(), 3, "invalid codes never reach the backend")
	assert.Len(t, progress, 4)
	assert.Empty(t, c.Snapshot().History, "batch results stay out of history")
}

func TestBatchClassify_RetriesTransportErrors(t *testing.T) {
	store := newMemStore()
	store.ref = textRef()
	backend := &flakyBackend{StubBackend: geminiStub().Respond(llm.AnalysisSchema, notFoundJSON)}
	backend.failures.Store(2)
	c := newTestController(t, store, backend)

	results, err := c.BatchClassify(context.Background(), []string{"7604.10"}, BatchOptions{Retry: fastRetry})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.False(t, results[0].Result.Found)
	assert.Len(t, backend.Calls(), 1)
}

func TestBatchClassify_GivesUp(t *testing.T) {
	store := newMemStore()
	store.ref = textRef()
	backend := &flakyBackend{StubBackend: geminiStub()}
	backend.failures.Store(100)
	c := newTestController(t, store, backend)

	results, err := c.BatchClassify(context.Background(), []string{"7604.10"}, BatchOptions{Retry: fastRetry})
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, common.ErrMaxRetries)
}

func TestBatchClassify_NotReady(t *testing.T) {
	c := newTestController(t, newMemStore(), geminiStub())
	_, err := c.BatchClassify(context.Background(), []string{"7604.10"}, BatchOptions{})
	require.ErrorIs(t, err, common.ErrNotReady)
}

func TestBatchClassify_Canceled(t *testing.T) {
	store := newMemStore()
	store.ref = textRef()
	c := newTestController(t, store, geminiStub().Respond(llm.AnalysisSchema, foundJSON))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.BatchClassify(ctx, []string{"7604.10", "7604.20"}, BatchOptions{Retry: fastRetry})
	require.ErrorIs(t, err, context.Canceled)
}
