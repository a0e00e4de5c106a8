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

/*
Package model provides models for predicting account ratings of tanks.

Memory-based models live in this package:

  - Naive: column mean
  - SlopeOne: weighted slope one
  - ItemCF: Pearson-weighted neighborhood over columns

Trainable models live in sub-packages: cluster (K-Means over rows) and factor (biased SVD).
*/
package model
