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

import "errors"

// Precondition errors. They are returned before anything is submitted.
var (
	ErrInvalidKind        = errors.New("scan: invalid scan kind")
	ErrInvalidProblemSize = errors.New("scan: negative problem size")
	ErrInvalidGroupSize   = errors.New("scan: invalid group size")
	ErrInvalidChunks      = errors.New("scan: chunks per group must be at least 1")
	ErrNilOperator        = errors.New("scan: nil operator")
	ErrNilGenerator       = errors.New("scan: nil generator")
	ErrNilProcessor       = errors.New("scan: nil processor")
	ErrMissingInit        = errors.New("scan: exclusive scan requires an init value")
	ErrShortOutput        = errors.New("scan: output shorter than input")
)
