package main

import (
	"strings"
	"testing"
)

func TestYesFlag_AcceptsLongAndShorthand(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "root_shorthand", args: []string{"-y"}},
		{name: "root_long", args: []string{"--yes"}},
		{name: "translate_shorthand", args: []string{"translate", "-y"}},
		{name: "retry_long", args: []string{"retry", "--yes"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := executeCommand(t, tc.args...)
			if err == nil {
				t.Fatalf("expected command error from missing required args, got nil")
			}
			if strings.Contains(out, "unknown shorthand flag: 'y'") || strings.Contains(out, "unknown flag: --yes") {
				t.Fatalf("expected --yes/-y to be parsed, got output: %s", out)
			}
		})
	}
}

func TestSelectionFlags(t *testing.T) {
	for _, name := range []string{"translate", "analyze", "preview"} {
		cmd, _, err := newRootCmd().Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		for _, flag := range []string{"old", "include", "exclude", "skip-key", "target", "token-ceiling"} {
			if cmd.Flags().Lookup(flag) == nil {
				t.Errorf("%s is missing --%s", name, flag)
			}
		}
	}
}

func TestRootHelpWithoutArgs(t *testing.T) {
	out, err := executeCommand(t)
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	if !strings.Contains(out, "jsontp [--old old.json] <new.json>") {
		t.Fatalf("unexpected help output: %s", out)
	}
}

func TestRoot_FlagsWithoutInputRequireNewFile(t *testing.T) {
	for _, args := range [][]string{{"-y"}, {"--yes"}, {"--old", "old.json"}, {"--target", "fr"}} {
		out, err := executeCommand(t, args...)
		if err == nil || !strings.Contains(err.Error(), "new.json is required") {
			t.Fatalf("%v: expected missing new.json error, got %v", args, err)
		}
		if !strings.Contains(out, "Usage:") {
			t.Errorf("%v: expected usage in output, got: %s", args, out)
		}
	}
}
