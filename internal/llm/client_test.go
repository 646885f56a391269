package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ClassifyCode(t *testing.T) {
	stub := NewStubBackend().Respond(AnalysisSchema,
		`{"found":true,"matches":[{"derivativeCategory":"Steel tubes","metalType":"Steel","matchDetail":"7306 listed","confidence":"Medium"}],"reasoning":"Heading match"}`)
	adapter := NewAdapter(stub, false, nil)

	segments := []prompt.Segment{prompt.Text("task")}
	result, err := adapter.ClassifyCode(context.Background(), segments)
	require.NoError(t, err)
	assert.True(t, result.Found)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, model.MetalSteel, result.Matches[0].MetalType)

	call, ok := stub.LastCall()
	require.True(t, ok)
	assert.Equal(t, AnalysisSchema.Name, call.Schema)
	assert.Equal(t, segments, call.Segments)
	assert.Equal(t, "stub", adapter.Name())
}

func TestAdapter_ClassifyCode_Errors(t *testing.T) {
	t.Run("transport error passes through", func(t *testing.T) {
		stub := NewStubBackend()
		stub.Err = &common.BackendTransportError{Provider: "stub", StatusCode: 500, Message: "boom"}
		_, err := NewAdapter(stub, false, nil).ClassifyCode(context.Background(), nil)
		var transportErr *common.BackendTransportError
		require.ErrorAs(t, err, &transportErr)
	})

	t.Run("malformed body is a protocol error", func(t *testing.T) {
		stub := NewStubBackend().Respond(AnalysisSchema, `{"found":true}`)
		_, err := NewAdapter(stub, false, nil).ClassifyCode(context.Background(), nil)
		var protoErr *common.BackendProtocolError
		require.ErrorAs(t, err, &protoErr)
	})

	t.Run("strict rejects inconsistent found flag", func(t *testing.T) {
		stub := NewStubBackend().Respond(AnalysisSchema,
			`{"found":false,"matches":[{"derivativeCategory":"X","metalType":"Steel","matchDetail":"d","confidence":"Low"}],"reasoning":"r"}`)
		_, err := NewAdapter(stub, true, nil).ClassifyCode(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewAdapter(NewStubBackend(), false, nil).ClassifyCode(ctx, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestAdapter_LookupProvision(t *testing.T) {
	stub := NewStubBackend().Respond(ProvisionSchema,
		`{"found":true,"code":"9903.85.08","metalType":"Aluminum","description":"Derivative aluminum articles"}`)

	result, err := NewAdapter(stub, false, nil).LookupProvision(context.Background(), []prompt.Segment{prompt.Text("task")})
	require.NoError(t, err)
	assert.Equal(t, "9903.85.08", result.Code)
	assert.Equal(t, "Aluminum", result.MetalType)

	call, _ := stub.LastCall()
	assert.Equal(t, ProvisionSchema.Name, call.Schema)
}

func TestAdapter_ExtractHeadings(t *testing.T) {
	t.Run("returns headings", func(t *testing.T) {
		stub := NewStubBackend().Respond(HeadingsSchema, `{"headings":[{"heading":"7604","description":"Bars","details":"All"}]}`)
		headings, err := NewAdapter(stub, false, nil).ExtractHeadings(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, []model.HeadingInfo{{Heading: "7604", Description: "Bars", Details: "All"}}, headings)
	})

	t.Run("backend failure degrades to empty", func(t *testing.T) {
		stub := NewStubBackend()
		stub.Err = errors.New("network down")
		headings, err := NewAdapter(stub, false, nil).ExtractHeadings(context.Background(), nil)
		require.NoError(t, err)
		assert.NotNil(t, headings)
		assert.Empty(t, headings)
	})

	t.Run("malformed body degrades to empty", func(t *testing.T) {
		stub := NewStubBackend().Respond(HeadingsSchema, "not json")
		headings, err := NewAdapter(stub, false, nil).ExtractHeadings(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, headings)
	})
}
