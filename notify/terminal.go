// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal writes one styled line per notification. Colors follow the
// writer's capabilities: a pipe or file gets plain text.
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	styles map[Level]lipgloss.Style
	plain  lipgloss.Style
}

// NewTerminal returns a Terminal writing to out (typically stderr).
func NewTerminal(out io.Writer) *Terminal {
	renderer := lipgloss.NewRenderer(out)
	label := renderer.NewStyle().Bold(true).Padding(0, 1)
	return &Terminal{
		out: out,
		styles: map[Level]lipgloss.Style{
			LevelInfo:    label.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")),
			LevelWarning: label.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")),
			LevelError:   label.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("9")),
		},
		plain: label,
	}
}

func (t *Terminal) Deliver(_ context.Context, notification Notification) {
	style, ok := t.styles[notification.Level]
	if !ok {
		style = t.plain
	}
	level := string(notification.Level)
	if level == "" {
		level = string(LevelInfo)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", style.Render(strings.ToUpper(level)), notification.Message)
}
