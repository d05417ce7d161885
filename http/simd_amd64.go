//go:build amd64

package http

import (
	"bytes"

	"golang.org/x/sys/cpu"
)

// hasSSE2 gates a future vectorized path. Header name/value comparisons
// stay on the scalar path regardless: there is no assembled SIMD kernel
// backing it yet, so this keeps the feature-detection plumbing (a real
// dependency on x/sys/cpu) without shipping a nonfunctional intrinsic
// underneath it.
var hasSSE2 = cpu.X86.HasSSE2

func toLowerFast(data []byte) {
	toLowerScalar(data)
}

func equalsFast(a, b []byte) bool {
	return bytes.Equal(a, b)
}

func toLowerScalar(data []byte) {
	for i := range data {
		if data[i] >= 'A' && data[i] <= 'Z' {
			data[i] += 'a' - 'A'
		}
	}
}
