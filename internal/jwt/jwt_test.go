package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	j := New("test-secret", time.Hour)
	ctx := context.Background()

	subjectID := uuid.New()
	token, err := j.Generate(ctx, subjectID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, j.Validate(ctx, token))

	got, err := j.GetSubjectID(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, subjectID, got)
}

func TestValidateWrongSecret(t *testing.T) {
	ctx := context.Background()

	token, err := New("secret-a", time.Hour).Generate(ctx, uuid.New())
	require.NoError(t, err)

	assert.Error(t, New("secret-b", time.Hour).Validate(ctx, token))
}

func TestValidateExpiredToken(t *testing.T) {
	j := New("test-secret", -time.Minute)
	ctx := context.Background()

	token, err := j.Generate(ctx, uuid.New())
	require.NoError(t, err)

	assert.Error(t, j.Validate(ctx, token))
}

func TestValidateGarbage(t *testing.T) {
	j := New("test-secret", time.Hour)
	assert.Error(t, j.Validate(context.Background(), "not.a.token"))
}

func TestGetTokenFromRequest(t *testing.T) {
	j := New("test-secret", time.Hour)
	ctx := context.Background()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", false},
		{"lowercase scheme", "bearer abc123", "abc123", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"no token", "Bearer", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, err := j.GetTokenFromRequest(ctx, req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, token)
			}
		})
	}
}
