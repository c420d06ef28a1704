// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors holds field-level validation failures from 422 responses.
	Errors []ValidationError

	// retryAfter is the server-requested wait, when the response
	// carried one.
	retryAfter time.Duration
}

// ValidationError describes one field-level validation failure.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, validationError := range err.Errors {
		detail := validationError.Message
		if detail == "" {
			detail = validationError.Code
		}
		fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, detail)
	}
	return builder.String()
}

// TransportError is a request that never produced an HTTP response:
// connection refused, reset, TLS failure, timeout.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("github: %s %s: %v", err.Method, err.URL, err.Err)
}

func (err *TransportError) Unwrap() error { return err.Err }

// GraphQLError is an error entry returned in a GraphQL response body.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (err *GraphQLError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("github graphql: %s: %s", err.Type, err.Message)
	}
	return "github graphql: " + err.Message
}

// IsNotFound reports whether err is a 404 response, or a GraphQL
// NOT_FOUND error.
func IsNotFound(err error) bool {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.StatusCode == 404
	}
	var graphqlError *GraphQLError
	return errors.As(err, &graphqlError) && graphqlError.Type == "NOT_FOUND"
}

// IsRateLimited reports whether err is a rate limit response. GitHub
// answers 429 or 403 with a recognizable message for both primary and
// secondary limits.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 429 || (apiError.StatusCode == 403 && isRateLimitMessage(apiError.Message))
}

// IsValidationFailed reports whether err is a 422 response.
func IsValidationFailed(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 422
}

// IsAlreadyExists reports whether err is a 422 response rejecting a
// create because the name is taken. Other validation failures, such as
// an unknown template or an invalid member, do not match.
func IsAlreadyExists(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != 422 {
		return false
	}
	for _, validationError := range apiError.Errors {
		if validationError.Code == "already_exists" || strings.Contains(strings.ToLower(validationError.Message), "already exists") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(apiError.Message), "already exists")
}

// IsConflict reports whether err is a 409 response.
func IsConflict(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 409
}

// IsRetryable reports whether err is transient: rate limiting, a 5xx
// gateway or availability failure, or a transport error.
func IsRetryable(err error) bool {
	if IsRateLimited(err) {
		return true
	}
	var apiError *APIError
	if errors.As(err, &apiError) {
		switch apiError.StatusCode {
		case 500, 502, 503, 504:
			return true
		}
		return false
	}
	var transportError *TransportError
	if errors.As(err, &transportError) {
		var netError net.Error
		if errors.As(transportError.Err, &netError) {
			return true
		}
		return errors.Is(transportError.Err, io.ErrUnexpectedEOF)
	}
	return false
}

// isRateLimitMessage separates rate limit 403s from permission 403s.
func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}
