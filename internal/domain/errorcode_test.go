package domain

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		errMsg string
		want   ErrorCode
	}{
		{"unauthorized", "request failed: 401 Unauthorized", ErrorCodeAuth},
		{"token expired beats auth", "access token expired, please reconnect", ErrorCodeTokenExp},
		{"invalid grant", "oauth2: invalid_grant", ErrorCodeTokenExp},
		{"forbidden", "403 Forbidden: insufficient permissions", ErrorCodePermission},
		{"not found", "post does not exist", ErrorCodeNotFound},
		{"rate limit", "429 Too Many Requests", ErrorCodeRateLimit},
		{"server error", "received 503 Service Unavailable", ErrorCodeServer},
		{"network", "dial tcp: connection refused", ErrorCodeNetwork},
		{"timeout", "context deadline exceeded", ErrorCodeNetwork},
		{"validation", "validation failed: content too long", ErrorCodeValidation},
		{"unknown", "something odd happened", ErrorCodeUnknown},
		{"empty", "", ErrorCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.errMsg); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.errMsg, got, tt.want)
			}
		})
	}
}

func TestErrorCode_Kind(t *testing.T) {
	permanent := []ErrorCode{
		ErrorCodeAuth, ErrorCodePermission, ErrorCodeNotFound,
		ErrorCodeValidation, ErrorCodeTokenExp,
	}
	for _, code := range permanent {
		if code.Kind() != ErrorKindPermanent {
			t.Errorf("%s should be permanent", code)
		}
	}

	transient := []ErrorCode{
		ErrorCodeRateLimit, ErrorCodeServer, ErrorCodeNetwork, ErrorCodeUnknown,
	}
	for _, code := range transient {
		if code.Kind() != ErrorKindTransient {
			t.Errorf("%s should be transient", code)
		}
	}
}
