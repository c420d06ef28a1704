// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cron

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/classroom/lib/clock"
)

// Schedule is a parsed cron expression.
type Schedule struct {
	expression  string
	minutes     bitset64
	hours       bitset64
	daysOfMonth bitset64
	months      bitset64
	daysOfWeek  bitset64
}

// bitset64 uses a uint64 as a compact set of integers 0-63.
type bitset64 uint64

func (b bitset64) has(value int) bool { return b&(1<<uint(value)) != 0 }
func (b *bitset64) set(value int)     { *b |= 1 << uint(value) }

var descriptors = map[string]string{
	"@hourly":   "0 * * * *",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@weekly":   "0 0 * * 0",
	"@monthly":  "0 0 1 * *",
}

var monthNames = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

var dayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// Parse parses a 5-field cron expression or a descriptor.
func Parse(expression string) (Schedule, error) {
	source := strings.TrimSpace(expression)
	if strings.HasPrefix(source, "@") {
		expanded, ok := descriptors[strings.ToLower(source)]
		if !ok {
			return Schedule{}, fmt.Errorf("cron: unknown descriptor %q", source)
		}
		source = expanded
	}

	fields := strings.Fields(strings.ToLower(source))
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("cron: expected 5 fields, got %d", len(fields))
	}

	schedule := Schedule{expression: strings.TrimSpace(expression)}
	specs := []struct {
		name     string
		target   *bitset64
		minimum  int
		maximum  int
		names    []string
		nameBase int
	}{
		{"minute", &schedule.minutes, 0, 59, nil, 0},
		{"hour", &schedule.hours, 0, 23, nil, 0},
		{"day-of-month", &schedule.daysOfMonth, 1, 31, nil, 0},
		{"month", &schedule.months, 1, 12, monthNames, 1},
		{"day-of-week", &schedule.daysOfWeek, 0, 6, dayNames, 0},
	}
	for index, spec := range specs {
		field := replaceNames(fields[index], spec.names, spec.nameBase)
		bits, err := parseField(field, spec.minimum, spec.maximum)
		if err != nil {
			return Schedule{}, fmt.Errorf("cron: %s field: %w", spec.name, err)
		}
		*spec.target = bits
	}
	return schedule, nil
}

// String returns the expression the schedule was parsed from.
func (s Schedule) String() string { return s.expression }

// replaceNames substitutes three-letter month or day names with their
// numbers.
func replaceNames(field string, names []string, base int) string {
	for index, name := range names {
		field = strings.ReplaceAll(field, name, strconv.Itoa(index+base))
	}
	return field
}

// Next returns the earliest time strictly after t that matches the
// schedule, computed in UTC. Impossible schedules such as Feb 31 fail
// after searching four years.
func (s Schedule) Next(t time.Time) (time.Time, error) {
	t = t.UTC().Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !s.months.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
			continue
		}
		// Wildcards set every bit, so checking both day constraints
		// gives AND semantics whenever one of them is unrestricted.
		if !s.daysOfMonth.has(t.Day()) || !s.daysOfWeek.has(int(t.Weekday())) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
			continue
		}
		if !s.hours.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, time.UTC)
			continue
		}
		if !s.minutes.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cron: no matching time within 4 years of %s", t.Format(time.RFC3339))
}

// Run calls fn at every occurrence of schedule until ctx is done, and
// returns ctx.Err(). Occurrences that pass while fn is running are
// skipped.
func Run(ctx context.Context, clk clock.Clock, schedule Schedule, fn func(ctx context.Context, at time.Time)) error {
	for {
		next, err := schedule.Next(clk.Now())
		if err != nil {
			return err
		}
		if err := clock.Sleep(ctx, clk, next.Sub(clk.Now())); err != nil {
			return err
		}
		fn(ctx, next)
	}
}

// parseField parses comma-separated terms into a bitset.
func parseField(field string, minimum, maximum int) (bitset64, error) {
	var result bitset64
	for _, term := range strings.Split(field, ",") {
		bits, err := parseTerm(term, minimum, maximum)
		if err != nil {
			return 0, err
		}
		result |= bits
	}
	if result == 0 {
		return 0, fmt.Errorf("field %q produces empty set", field)
	}
	return result, nil
}

// parseTerm parses a single term: *, */N, V, V-V, V-V/N.
func parseTerm(term string, minimum, maximum int) (bitset64, error) {
	rangeExpression, stepText, stepped := strings.Cut(term, "/")
	step := 1
	if stepped {
		parsed, err := strconv.Atoi(stepText)
		if err != nil {
			return 0, fmt.Errorf("invalid step %q: %w", stepText, err)
		}
		if parsed <= 0 {
			return 0, fmt.Errorf("step must be positive, got %d", parsed)
		}
		step = parsed
	}

	var rangeStart, rangeEnd int
	if rangeExpression == "*" {
		rangeStart, rangeEnd = minimum, maximum
	} else if startText, endText, isRange := strings.Cut(rangeExpression, "-"); isRange {
		var err error
		if rangeStart, err = strconv.Atoi(startText); err != nil {
			return 0, fmt.Errorf("invalid range start %q: %w", startText, err)
		}
		if rangeEnd, err = strconv.Atoi(endText); err != nil {
			return 0, fmt.Errorf("invalid range end %q: %w", endText, err)
		}
		if rangeStart > rangeEnd {
			return 0, fmt.Errorf("range start %d > end %d", rangeStart, rangeEnd)
		}
	} else {
		value, err := strconv.Atoi(rangeExpression)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q: %w", rangeExpression, err)
		}
		rangeStart, rangeEnd = value, value
	}

	if rangeStart < minimum || rangeEnd > maximum {
		return 0, fmt.Errorf("value out of range [%d-%d]: got %d-%d", minimum, maximum, rangeStart, rangeEnd)
	}

	var result bitset64
	for value := rangeStart; value <= rangeEnd; value += step {
		result.set(value)
	}
	return result, nil
}
