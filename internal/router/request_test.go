package router

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackroad/workers/internal/util"
)

func TestRequestContext_HeaderCaseInsensitive(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("x-api-key", "br_1234567890")

	req := NewRequestContext(context.Background(), "GET", "/verify", h, nil, ClientMetadata{})
	assert.Equal(t, "br_1234567890", req.Header.Get("X-API-KEY"))
}

func TestRequestContext_NilDefaults(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // nil context is normalised
	req := NewRequestContext(nil, "GET", "/", nil, nil, ClientMetadata{})
	assert.NotNil(t, req.Context())
	assert.NotNil(t, req.Header)

	body, err := req.Body()
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestRequestContext_BodyReadOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	reader := func() ([]byte, error) {
		calls++
		return []byte(`{"event":"click"}`), nil
	}

	req := NewRequestContext(context.Background(), "POST", "/track", nil, reader, ClientMetadata{})
	for i := 0; i < 3; i++ {
		body, err := req.Body()
		require.NoError(t, err)
		assert.Equal(t, `{"event":"click"}`, string(body))
	}
	assert.Equal(t, 1, calls)
}

func TestRequestContext_BodyFromReaderLimit(t *testing.T) {
	t.Parallel()

	req := NewRequestContext(context.Background(), "POST", "/", nil,
		BodyFromReader(strings.NewReader("0123456789"), 4), ClientMetadata{})

	body, err := req.Body()
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}

func TestRequestContext_DecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    BodyReader
		wantErr bool
	}{
		{name: "valid object", body: BodyFromBytes([]byte(`{"a":1}`))},
		{name: "malformed", body: BodyFromBytes([]byte(`{"a":`)), wantErr: true},
		{name: "empty", body: BodyFromBytes(nil), wantErr: true},
		{name: "whitespace", body: BodyFromBytes([]byte("  \n")), wantErr: true},
		{
			name: "read failure",
			body: func() ([]byte, error) {
				return nil, errors.New("connection reset")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := NewRequestContext(context.Background(), "POST", "/", nil, tt.body, ClientMetadata{})

			var v map[string]any
			err := req.DecodeJSON(&v)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, float64(1), v["a"])
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrInvalidBody)
		})
	}
}

func TestRequestContext_DecodeJSON_EmptyCause(t *testing.T) {
	t.Parallel()

	req := NewRequestContext(context.Background(), "POST", "/track", nil, nil, ClientMetadata{})

	var v any
	err := req.DecodeJSON(&v)
	assert.ErrorIs(t, err, util.ErrEmptyBody)

	var bodyErr *util.BodyError
	assert.ErrorAs(t, err, &bodyErr)
}
