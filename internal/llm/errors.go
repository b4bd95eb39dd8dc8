package llm

import (
	"errors"
	"strings"
)

// ErrorKind is a stable classification of an LLM provider error. Unlike
// the teacher's classifyProviderError, which returns a raw string,
// callers switch on a fixed Go type so a future wording change in the
// classifier cannot silently break a caller's comparison (SPEC_FULL.md
// Open Question 2).
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorAuth
	ErrorRateLimit
	ErrorBilling
	ErrorContextLength
	ErrorModelUnavailable
	ErrorTimeout
	ErrorNetwork
	ErrorServer
	ErrorInvalidRequest
)

// ErrNoModelsConfigured is returned when a Pool has no models to try.
var ErrNoModelsConfigured = errors.New("llm: no models configured")

// ClassifyError determines an ErrorKind from an error's message, matching
// the teacher's classifyProviderError pattern-by-substring approach
// (internal/agent/failover.go) but returning the stable enum above.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorUnknown
	}
	s := strings.ToLower(err.Error())

	switch {
	case containsAny(s, "timeout", "deadline exceeded", "context deadline"):
		return ErrorTimeout
	case containsAny(s, "rate limit", "rate_limit", "too many requests", "429"):
		return ErrorRateLimit
	case containsAny(s, "unauthorized", "invalid api key", "authentication", "401", "403"):
		return ErrorAuth
	case containsAny(s, "billing", "payment", "quota", "402"):
		return ErrorBilling
	case containsAny(s, "context length", "context_length", "maximum context", "too many tokens"):
		return ErrorContextLength
	case containsAny(s, "model not found", "does not exist", "unavailable"):
		return ErrorModelUnavailable
	case containsAny(s, "internal server", "server error", "500", "502", "503", "504"):
		return ErrorServer
	case containsAny(s, "connection refused", "no such host", "network", "eof"):
		return ErrorNetwork
	case containsAny(s, "invalid", "bad request", "400"):
		return ErrorInvalidRequest
	default:
		return ErrorUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FormatUserMessage turns a classified error into the human-readable
// message the Agent Loop delivers as the assistant's reply when an LLM
// call fails outright (spec §4.5 error boundaries).
func FormatUserMessage(err error) string {
	switch ClassifyError(err) {
	case ErrorAuth:
		return "I couldn't reach the language model: the configured credentials were rejected."
	case ErrorRateLimit:
		return "I couldn't reach the language model: it is rate-limiting requests right now. Please try again shortly."
	case ErrorBilling:
		return "I couldn't reach the language model: the account has a billing or quota problem."
	case ErrorContextLength:
		return "That conversation has grown too long for the language model's context window."
	case ErrorModelUnavailable:
		return "The configured language model is currently unavailable."
	case ErrorTimeout:
		return "The language model did not respond in time. Please try again."
	case ErrorNetwork:
		return "I couldn't reach the language model because of a network error."
	case ErrorServer:
		return "The language model's service is having problems right now. Please try again shortly."
	default:
		return "Something went wrong talking to the language model: " + err.Error()
	}
}
