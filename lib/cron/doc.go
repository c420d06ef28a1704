// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron schedules the periodic expiry sweep. It parses 5-field
// cron expressions, computes the next occurrence after a given time,
// and drives a callback on that schedule with [Run].
//
//	┌───────────── minute (0-59)
//	│ ┌───────────── hour (0-23)
//	│ │ ┌───────────── day of month (1-31)
//	│ │ │ ┌───────────── month (1-12 or jan-dec)
//	│ │ │ │ ┌───────────── day of week (0-6 or sun-sat, 0=Sunday)
//	│ │ │ │ │
//	* * * * *
//
// Fields take values, ranges (1-5), lists (1,3,5), steps (*/15,
// 1-30/5), and wildcards. The descriptors @hourly, @daily, @weekly,
// and @monthly are accepted. All times are UTC; there is no seconds
// field.
package cron
