package syntax

import (
	"path/filepath"
	"strings"
)

// shebangInterpreter extracts the interpreter base-name from a shebang line.
//
// It handles the common forms:
//
//	#!/bin/bash
//	#!/usr/bin/env python3
//	#!/usr/bin/env -S scala -classpath lib   (env flags are skipped)
func shebangInterpreter(line string) string {
	if !strings.HasPrefix(line, "#!") {
		return ""
	}
	fields := strings.Fields(line[2:])
	if len(fields) == 0 {
		return ""
	}
	base := filepath.Base(fields[0])
	if base != "env" {
		return base
	}
	for _, f := range fields[1:] {
		if !strings.HasPrefix(f, "-") {
			return filepath.Base(f)
		}
	}
	return ""
}

// interpreterCandidates lists the names to look an interpreter up by: the
// name itself, then with its version suffix stripped (python3.11 → python).
func interpreterCandidates(name string) []string {
	if name == "" {
		return nil
	}
	stripped := strings.TrimRightFunc(name, func(r rune) bool {
		return r == '.' || (r >= '0' && r <= '9')
	})
	if stripped == "" || stripped == name {
		return []string{name}
	}
	return []string{name, stripped}
}

// firstLine returns s up to, not including, the first newline.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSuffix(s[:i], "\r")
	}
	return s
}
