// log/stack.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// StackFrame records one level of a captured call stack.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// StackFrames is a full captured call stack, innermost frame first.
type StackFrames []StackFrame

func (fr StackFrames) Strings() []string {
	s := make([]string, len(fr))
	for i, f := range fr {
		s[i] = f.String()
	}
	return s
}

func (fr StackFrames) String() string {
	return strings.Join(fr.Strings(), " | ")
}

// Callstack captures the call stack of its caller, reusing the storage in
// fr when it has enough capacity.
func Callstack(fr StackFrames) StackFrames {
	var callers [16]uintptr
	n := runtime.Callers(3, callers[:]) // skip up to the function that is logging
	frames := runtime.CallersFrames(callers[:n])

	if cap(fr) < n {
		fr = make(StackFrames, n)
	}
	fr = fr[:0]

	for i := 0; i < n; i++ {
		frame, more := frames.Next()
		fn := strings.TrimPrefix(frame.Function, "github.com/flybywiresim/ndterrain")
		fn = strings.TrimPrefix(fn, "main.")

		fr = append(fr, StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: fn,
		})

		if !more || frame.Function == "main.main" {
			break
		}
	}
	return fr
}
