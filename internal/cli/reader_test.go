package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "passcode", input: "332\n", want: "332"},
		{name: "padded code", input: "  7604.10 \r\n", want: "7604.10"},
		{name: "blank keeps default", input: "\n", want: ""},
		{name: "piped without newline", input: "332", want: "332"},
		{name: "nothing left", input: "", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLineReader(strings.NewReader(tt.input)).ReadLine(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineReader_EntryFieldsInOrder(t *testing.T) {
	r := NewLineReader(strings.NewReader("7306.30\nTubes\nWelded steel tubes\nSteel"))
	ctx := context.Background()

	var fields []string
	for {
		line, err := r.ReadLine(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fields = append(fields, line)
	}
	assert.Equal(t, []string{"7306.30", "Tubes", "Welded steel tubes", "Steel"}, fields)
}

func TestLineReader_Canceled(t *testing.T) {
	t.Run("before reading", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLineReader(strings.NewReader("332\n")).ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCanceled)
	})

	t.Run("late answer goes to the next prompt", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pr.Close() }()
		r := NewLineReader(pr)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err := r.ReadLine(ctx)
		require.ErrorIs(t, err, ErrInputCanceled)

		go func() {
			_, _ = io.WriteString(pw, "332\n")
			_ = pw.Close()
		}()

		got, err := r.ReadLine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "332", got)

		_, err = r.ReadLine(context.Background())
		assert.ErrorIs(t, err, io.EOF)
	})
}
