// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds HTTP body reads.
//
// GitHub answers in JSON, but proxies and load balancers in front of
// Enterprise Server answer errors with HTML pages of arbitrary size.
// [ReadResponse] refuses bodies over [MaxResponseSize] instead of
// truncating them silently, and [ErrorText] turns an unexpected body
// into a short single-line string fit for an error message.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// MaxResponseSize bounds API response bodies: 64 MiB.
const MaxResponseSize int64 = 64 << 20

// maxErrorText bounds the text ErrorText keeps.
const maxErrorText = 512

// ErrBodyTooLarge is returned when a body exceeds its limit.
var ErrBodyTooLarge = errors.New("body too large")

// ReadResponse reads an API response body of at most MaxResponseSize
// bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return ReadLimited(body, MaxResponseSize)
}

// ReadLimited reads body, failing with ErrBodyTooLarge when it holds
// more than limit bytes.
func ReadLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return data, nil
}

// ErrorText returns body as one line of at most 512 bytes: whitespace
// runs collapse to a single space and a cut body ends in "...".
func ErrorText(body []byte) string {
	text := strings.Join(strings.FieldsFunc(string(body), unicode.IsSpace), " ")
	if len(text) <= maxErrorText {
		return text
	}
	cut := maxErrorText
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
