// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package exceptions provides helper functions to leverage Go's `panic`, `recover` and `defer`
// as an "exceptions" system.
//
// It is relatively slow (when compared to simply returning an error), but more ergonomic
// in some cases, and can be used where a little latency in case of errors is not an issue.
package exceptions

import "github.com/pkg/errors"

// Catch calls `handler` if an exception occurs of the given type.
//
// This should be called on a deferred statement. Multiple deferred Catch statements
// are allowed, for different types of exceptions.
func Catch[E any](handler func(exception E)) {
	exception := recover()
	if exception == nil {
		return
	}
	exceptionE, ok := exception.(E)
	if !ok {
		// Re-throw the exception: it's not the type this Catch handles.
		panic(exception)
	}
	handler(exceptionE)
}

// Try calls fn and returns any exception (`panic`) that may have occurred.
// If no panic happened, it returns nil.
func Try(fn func()) (exception any) {
	defer func() {
		exception = recover()
	}()
	fn()
	return
}

// TryCatch calls fn and recovers from any panic, converting it to an error.
//
// If the panic value is already an error it is returned as-is (via errors.WithStack, to
// preserve a stack trace). Otherwise, it is converted with errors.Errorf("%v", ...).
func TryCatch[E error](fn func()) (err error) {
	defer func() {
		exception := recover()
		if exception == nil {
			return
		}
		if asErr, ok := exception.(error); ok {
			err = errors.WithStack(asErr)
			return
		}
		err = errors.Errorf("%v", exception)
	}()
	fn()
	return
}

// Panicf is an alias to panic(fmt.Errorf(...)), for a convenient way to throw an error-typed
// exception with a formatted message.
func Panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

// Throw is an alias to `panic`, for those who prefer the usual exceptions' jargon.
func Throw(exception any) {
	panic(exception)
}
