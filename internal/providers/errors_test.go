package providers

import (
	"errors"
	"fmt"
	"testing"

	"edurag/internal/util"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":            ErrorQuota,
		"429 rate":                      ErrorRate,
		"maximum context length hit":    ErrorContext,
		"timeout":                       ErrorTransient,
		"ollama embedding error 503: x": ErrorTransient,
		"bad request":                   ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
	if got := ClassifyError(fmt.Errorf("call: %w", util.ErrMalformedResponse)); got != ErrorPermanent {
		t.Fatalf("malformed response should be permanent, got %s", got)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("wrapped: %w", util.ErrRateLimited)) {
		t.Fatalf("rate limit should be retryable")
	}
	if Retryable(errors.New("insufficient_quota")) {
		t.Fatalf("quota exhaustion should not be retryable")
	}
}
