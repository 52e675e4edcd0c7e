package shared

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Name     string `json:"name"     validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=LOW HIGH"`
}

type selfValidating struct {
	Value int `json:"value"`
}

func (s selfValidating) Validate() error {
	if s.Value < 0 {
		return errors.New("value must not be negative")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"a","priority":"LOW"}`, false},
		{"malformed", `{"name":`, true},
		{"unknown field", `{"name":"a","extra":1}`, true},
		{"trailing object", `{"name":"a"}{"name":"b"}`, true},
		{"empty body", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			require.NoError(t, err)

			var got testRequest
			err = DecodeJSON(req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a", got.Name)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&testRequest{Name: "a"}))
	assert.Error(t, ValidateRequest(&testRequest{}))
	assert.Error(t, ValidateRequest(&testRequest{Name: "a", Priority: "SOMEDAY"}))

	assert.NoError(t, ValidateRequest(selfValidating{Value: 1}))
	assert.EqualError(t, ValidateRequest(selfValidating{Value: -1}), "value must not be negative")
}
