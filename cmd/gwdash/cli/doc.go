// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the gwdash CLI.
//
// The central type is [Command], a named command with optional nested
// [Command.Subcommands], a parameter struct whose tagged fields become
// flags (see [BindFlags]), and a Run function. Commands are assembled
// into a tree in cmd/gwdash/commands and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// and help output with examples.
//
// Unknown subcommands and flags get a "did you mean" suggestion based
// on Levenshtein distance (threshold: distance <= 3).
//
// Commands return [ToolError] values to classify failures and
// [ExitError] to exit non-zero without an extra error line.
package cli
