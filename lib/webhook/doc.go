// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package webhook serves "classroom serve": a chi router that accepts
// GitHub issues and issue_comment deliveries, verifies their
// HMAC-SHA256 signatures, drops redeliveries, and hands accepted
// events to a single serial [Queue]. Scheduled expiry sweeps go
// through the same queue, so two lifecycle operations never run at
// once inside the process.
package webhook
