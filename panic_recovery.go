// panic_recovery.go: Panic recovery for extension callbacks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package goextensions

import (
	"runtime"
)

// withStackRecover returns a recovery function that logs the panic value and
// the stack of the current goroutine. Use it with defer around code that runs
// third-party extension logic, such as destroy hooks.
//
//	func() {
//	    defer withStackRecover(logger, "extension", name)()
//	    ext.Destroy()
//	}()
func withStackRecover(logger Logger, args ...any) func() {
	return func() {
		if r := recover(); r != nil {
			buf := make([]byte, 64<<10)
			n := runtime.Stack(buf, false)

			fields := append([]any{"panic", r, "stack", string(buf[:n])}, args...)
			logger.Error("Panic recovered in extension callback", fields...)
		}
	}
}
