package syntax

import (
	"slices"
	"testing"
)

func TestShebangInterpreter(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"#!/bin/sh", "sh"},
		{"#!/bin/bash", "bash"},
		{"#!/usr/bin/env bash", "bash"},
		{"#!/usr/bin/env python3", "python3"},
		{"#!/usr/bin/env python3.11", "python3.11"},
		{"#!/usr/bin/env -S scala -classpath lib", "scala"},
		{"#!/usr/bin/env -vS node", "node"},
		{"#! /usr/bin/perl -w", "perl"},
		{"# not a shebang", ""},
		{"", ""},
		{"#!/usr/bin/env -S", ""}, // env -S with nothing after
	}
	for _, c := range cases {
		got := shebangInterpreter(c.line)
		if got != c.want {
			t.Errorf("shebangInterpreter(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestInterpreterCandidates(t *testing.T) {
	cases := []struct {
		interp string
		want   []string
	}{
		{"bash", []string{"bash"}},
		{"python3", []string{"python3", "python"}},
		{"python3.11", []string{"python3.11", "python"}},
		{"node20", []string{"node20", "node"}},
		{"ts-node", []string{"ts-node"}},
		{"3", []string{"3"}}, // nothing left after stripping
		{"", nil},
	}
	for _, c := range cases {
		got := interpreterCandidates(c.interp)
		if !slices.Equal(got, c.want) {
			t.Errorf("interpreterCandidates(%q) = %q, want %q", c.interp, got, c.want)
		}
	}
}

func TestResolveInterpreter(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"python": "interpreters: [python, python3]\nkeywords: [{keyString: def}]\n",
		"shell":  "interpreters: [sh, bash]\nkeywords: [{keyString: fi}]\n",
	})
	cases := []struct {
		line string
		want string // "" means no match expected
	}{
		{"#!/usr/bin/env python3", "python"},
		{"#!/usr/bin/env python3.11", "python"},
		{"#!/usr/bin/env python2.7", "python"},
		{"#!/usr/bin/env bash", "shell"},
		{"#!/bin/sh\necho hi\n", "shell"},
		{"package main", ""},        // not a shebang
		{"#!/usr/bin/env ruby", ""}, // no style declares it
	}
	for _, c := range cases {
		got, _ := reg.ResolveInterpreter(c.line)
		if got != c.want {
			t.Errorf("ResolveInterpreter(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}
