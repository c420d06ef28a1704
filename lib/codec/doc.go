// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the binary encoding for classroom state files: CBOR
// with Core Deterministic Encoding (RFC 8949 §4.2), optionally wrapped
// in a zstd frame. Deterministic encoding means the same ledger
// contents always produce the same bytes, which keeps rewrites of an
// unchanged file byte-identical.
package codec
