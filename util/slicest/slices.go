// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package slicest holds small generic slice helpers.
package slicest

// Map applies fn to every element. A nil input yields an empty slice.
func Map[T, U any, S ~[]T](s S, fn func(T) U) []U {
	result := make([]U, 0, len(s))
	for _, t := range s {
		result = append(result, fn(t))
	}
	return result
}

// Filter keeps the elements for which fn reports true, preserving order.
func Filter[T any, S ~[]T](s S, fn func(T) bool) S {
	result := make(S, 0, len(s))
	for _, t := range s {
		if fn(t) {
			result = append(result, t)
		}
	}
	return result
}
