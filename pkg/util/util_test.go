package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routinedash/pkg/circuitbreaker"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type invalid string

func (e invalid) Error() string    { return string(e) }
func (e invalid) Validation() bool { return true }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	var syntax *json.SyntaxError
	decodeErr := json.Unmarshal([]byte("{"), &struct{}{})
	require.ErrorAs(t, decodeErr, &syntax)

	tests := []struct {
		name      string
		err       error
		want      string
		transient bool
	}{
		{"nil", nil, KindNone, false},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), KindCanceled, false},
		{"deadline", context.DeadlineExceeded, KindTimeout, true},
		{"breaker", circuitbreaker.ErrCircuitBreakerOpen, KindCircuitOpen, true},
		{"validation", fmt.Errorf("wrap: %w", invalid("bad")), KindValidation, false},
		{"not found", statusErr(404), KindNotFound, false},
		{"client", statusErr(422), KindClient, false},
		{"server", statusErr(503), KindServer, true},
		{"decode", decodeErr, KindDecode, false},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, KindTimeout, true},
		{"url", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, KindNetwork, true},
		{"other", errors.New("?"), KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("u1", "viewer", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "viewer", claims.Role)
	assert.Equal(t, "u1", claims.Subject)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}

func TestJWTRejectsExpiredAndEmptyUser(t *testing.T) {
	expired, err := GenerateJWT("u1", "", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)

	anon, err := GenerateJWT("", "", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(anon, "secret")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"Basic dXNlcg==": "",
		"Bearer":         "",
	}
	for header, want := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, ExtractToken(r), "header %q", header)
	}
}
