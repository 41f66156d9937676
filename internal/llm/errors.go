package llm

import "fmt"

// FailureKind classifies a provider failure at its origin. Downstream code
// switches on the kind; nobody inspects provider error prose.
type FailureKind string

const (
	FailureQuota             FailureKind = "quota_exhausted"
	FailureInvalidCredential FailureKind = "invalid_credential"
	FailureRateLimited       FailureKind = "rate_limited"
	FailureContextTooLong    FailureKind = "context_too_long"
	FailureTimeout           FailureKind = "timeout"
	FailureUnknown           FailureKind = "unknown"
)

type ProviderError struct {
	Kind   FailureKind
	Status int
	// Code is the machine-readable error code from the provider, if any.
	Code string
	// Detail is the raw provider message. Logged server-side only.
	Detail string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (status=%d code=%q): %s", e.Kind, e.Status, e.Code, e.Detail)
}

// UserMessage is the actionable, non-technical text shown to the end user
// for this failure class.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case FailureQuota:
		return "The AI service has run out of quota. Please try again later or contact support."
	case FailureInvalidCredential:
		return "The AI service rejected this deployment's credentials. Please contact support."
	case FailureRateLimited:
		return "Too many requests right now. Please wait a moment and try again."
	case FailureContextTooLong:
		return "This conversation is too long for the AI to process. Please start a new conversation."
	case FailureTimeout:
		return "The AI took too long to respond. Please try again."
	default:
		return "The AI service is temporarily unavailable. Please try again."
	}
}

// classify maps a provider HTTP status and error code to a failure kind.
// Codes are matched exactly; prose is never inspected.
func classify(status int, code string) FailureKind {
	switch status {
	case 401, 403:
		return FailureInvalidCredential
	case 429:
		if code == "insufficient_quota" {
			return FailureQuota
		}
		return FailureRateLimited
	case 400:
		if code == "context_length_exceeded" || code == "string_above_max_length" {
			return FailureContextTooLong
		}
		return FailureUnknown
	default:
		return FailureUnknown
	}
}
