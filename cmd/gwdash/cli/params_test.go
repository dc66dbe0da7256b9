// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

type ConnectionFlags struct {
	URL string
}

func (c *ConnectionFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.URL, "api-url", "", "service URL")
}

func TestBindFlags(t *testing.T) {
	var params struct {
		ConnectionFlags
		Name    string   `flag:"name,n" desc:"display name" default:"anon"`
		Active  bool     `flag:"active" desc:"active flag" default:"true"`
		Tags    []string `flag:"tag" desc:"tags"`
		ignored string
	}
	flagSet := FlagsFromParams("test", &params)

	if params.Name != "anon" || !params.Active {
		t.Errorf("defaults not applied: %+v", params)
	}
	if err := flagSet.Parse([]string{"-n", "Ana", "--active=false", "--tag", "a,b", "--api-url", "http://x"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Name != "Ana" || params.Active || len(params.Tags) != 2 || params.URL != "http://x" {
		t.Errorf("params = %+v", params)
	}
	_ = params.ignored
}

func TestBindFlagsRejectsInvalidInput(t *testing.T) {
	if err := BindFlags(struct{}{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("non-pointer params accepted")
	}

	var badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("unparseable default accepted")
	}

	var unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("unsupported field type accepted")
	}
}
