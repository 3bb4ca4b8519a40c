// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice holds generic helpers the standard [slices] package lacks.
package slice

// Map converts every element with transform. A nil input stays nil so JSON
// views keep the null/empty distinction of their source.
func Map[T, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}
	return result
}
