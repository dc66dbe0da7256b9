// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gwdash/gwdash/session"
)

// table aligns tab-separated columns.
type table struct {
	writer *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *table) row(columns ...string) {
	fmt.Fprintln(t.writer, strings.Join(columns, "\t"))
}

func (t *table) flush() error {
	return t.writer.Flush()
}

// formatTimestamp renders a server timestamp for tables, "-" when absent.
func formatTimestamp(timestamp *session.Timestamp) string {
	if timestamp == nil || timestamp.IsZero() {
		return "-"
	}
	if timestamp.Time.IsZero() {
		return timestamp.String()
	}
	return timestamp.Time.Format("2006-01-02 15:04")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
