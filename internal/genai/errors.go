package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction defines what the parser chain does after an error.
type ErrorAction int

const (
	// ActionRetry retries the same parser after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next parser immediately.
	ActionFallback
	// ActionFail stops the chain.
	ActionFail
)

// String returns a human-readable string for the error action.
func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError carries the provider and HTTP status of a failed API call.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider and status code information.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

// ClassifyError determines the chain action for err.
//
// Cancellation stops the chain. Rate limits, timeouts and server errors are
// retried. Quota exhaustion and client errors (bad key, bad request) are
// provider specific, so the next provider is tried.
func ClassifyError(err error) ErrorAction {
	if err == nil || errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "quota", "daily limit", "billing"):
		return ActionFallback
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "unavailable",
		"overloaded", "internal server error", "bad gateway", "timeout", "connection"):
		return ActionRetry
	case containsAny(msg, "unauthorized", "forbidden", "permission denied", "invalid api key"):
		return ActionFallback
	default:
		return ActionRetry
	}
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500:
		return ActionRetry
	case statusCode >= 400:
		return ActionFallback
	default:
		return ActionRetry
	}
}

// classifyErrorType maps err to a metric status label.
func classifyErrorType(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case llmErr.StatusCode >= 500:
			return "server_error"
		case llmErr.StatusCode == http.StatusUnauthorized || llmErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case llmErr.StatusCode == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
