// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scan

import "cmp"

// Integers is the set of built-in integer types.
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floats is the set of built-in floating-point types.
type Floats interface {
	~float32 | ~float64
}

// Numbers is the set of types with arithmetic operators.
type Numbers interface {
	Integers | Floats
}

// Operator is an associative binary operator.
type Operator[T any] struct {
	// Name identifies the operator in logs and metrics.
	Name string

	// Fn combines a (earlier) with b (later).
	Fn func(a, b T) T

	// Native marks operators the device can evaluate in its collectives.
	Native bool
}

// Func wraps an arbitrary associative function. The resulting operator never
// uses native collectives.
func Func[T any](name string, fn func(a, b T) T) Operator[T] {
	return Operator[T]{Name: name, Fn: fn}
}

// Plus returns the addition operator.
func Plus[T Numbers]() Operator[T] {
	return Operator[T]{Name: "plus", Fn: func(a, b T) T { return a + b }, Native: true}
}

// Multiplies returns the multiplication operator.
func Multiplies[T Numbers]() Operator[T] {
	return Operator[T]{Name: "multiplies", Fn: func(a, b T) T { return a * b }, Native: true}
}

// Min returns the minimum operator.
func Min[T cmp.Ordered]() Operator[T] {
	return Operator[T]{Name: "min", Fn: func(a, b T) T { return min(a, b) }, Native: true}
}

// Max returns the maximum operator.
func Max[T cmp.Ordered]() Operator[T] {
	return Operator[T]{Name: "max", Fn: func(a, b T) T { return max(a, b) }, Native: true}
}

// BitOr returns the bitwise or operator.
func BitOr[T Integers]() Operator[T] {
	return Operator[T]{Name: "bit_or", Fn: func(a, b T) T { return a | b }, Native: true}
}

// BitAnd returns the bitwise and operator.
func BitAnd[T Integers]() Operator[T] {
	return Operator[T]{Name: "bit_and", Fn: func(a, b T) T { return a & b }, Native: true}
}

// BitXor returns the bitwise xor operator.
func BitXor[T Integers]() Operator[T] {
	return Operator[T]{Name: "bit_xor", Fn: func(a, b T) T { return a ^ b }, Native: true}
}
