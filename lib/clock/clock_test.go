// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if !fake.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", fake.Now(), start)
	}

	fake.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !fake.Now().Equal(want) {
		t.Errorf("after Advance: Now() = %v, want %v", fake.Now(), want)
	}

	later := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake.Set(later)
	if !fake.Now().Equal(later) {
		t.Errorf("after Set: Now() = %v, want %v", fake.Now(), later)
	}
}

func TestRealClockMoves(t *testing.T) {
	source := Real()
	first := source.Now()
	if source.Now().Before(first) {
		t.Error("real clock went backwards")
	}
}
