// Copyright 2026 tankrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"github.com/juju/errors"
)

const (
	// ErrInvalidIndex is returned when a row or entry index is out of range.
	ErrInvalidIndex = errors.ConstError("invalid index")
	// ErrIllFormedMatrix is returned when entries are appended before any row is opened, or
	// when a matrix with entries in an unsealed row is consumed.
	ErrIllFormedMatrix = errors.ConstError("ill-formed matrix")
)

