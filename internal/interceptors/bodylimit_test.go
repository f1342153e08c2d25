package interceptors

import (
	"strings"
	"testing"

	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	bl, err := NewBodyLimit(2048)
	require.NoError(t, err)

	testCases := []struct {
		name           string
		size           int
		expectedStatus response.StatusCode
	}{
		{"empty", 0, response.StatusOK},
		{"at limit", 2048, response.StatusOK},
		{"over limit", 2049, response.StatusPayloadTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := request.New("POST", "/ok", request.WithBody([]byte(strings.Repeat("x", tc.size))))
			resp, term := run(t, bl, req)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode())
			if tc.expectedStatus == response.StatusPayloadTooLarge {
				assert.Equal(t, "request body exceeds 2.0 KiB", string(resp.Body()))
				assert.Equal(t, 0, term.calls)
			}
		})
	}

	_, err = NewBodyLimit(0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}
