// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader(`{"status":"ok"}`), 15)
	if err != nil {
		t.Fatalf("ReadLimited at the limit: %v", err)
	}
	if string(data) != `{"status":"ok"}` {
		t.Errorf("data = %q", data)
	}

	if _, err := ReadLimited(strings.NewReader(`{"status":"ok"}`), 14); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("ReadLimited over the limit = %v, want ErrBodyTooLarge", err)
	}

	data, err = ReadResponse(bytes.NewReader(nil))
	if err != nil || len(data) != 0 {
		t.Errorf("ReadResponse(empty) = %q, %v", data, err)
	}

	if _, err := ReadResponse(failReader{}); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("ReadResponse(failing) = %v, want the read error", err)
	}
}

func TestErrorText(t *testing.T) {
	if got := ErrorText([]byte("  <html>\n  <body>Bad Gateway</body>\n</html>\n")); got != "<html> <body>Bad Gateway</body> </html>" {
		t.Errorf("ErrorText = %q", got)
	}

	long := strings.Repeat("x", 511) + "é" + strings.Repeat("y", 100)
	got := ErrorText([]byte(long))
	if got != strings.Repeat("x", 511)+"..." {
		t.Errorf("ErrorText cut %d bytes, want 511 plus the marker", len(got)-3)
	}
}
