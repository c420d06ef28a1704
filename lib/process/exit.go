// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that choose their process exit
// code.
type ExitCoder interface {
	ExitCode() int
}

// ExitCode returns the code for err: 0 for nil, the code an ExitCoder
// in the chain asks for, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Report writes "error: err" to w unless err is nil or an ExitCoder
// asking for exit code 0.
func Report(w io.Writer, err error) {
	if err == nil || ExitCode(err) == 0 {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// Fatal reports err to stderr and exits with its code.
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
