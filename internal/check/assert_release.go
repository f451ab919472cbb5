//go:build !debug

// Package check holds invariant assertions. They panic in builds tagged
// debug and compile to nothing otherwise.
package check

func Assert(bool, string) {}

func Assertf(bool, string, ...any) {}
