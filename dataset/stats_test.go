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

package dataset

import (
	"bytes"
	"io"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatsReader_ReadAccount(t *testing.T) {
	feed := []byte{0x3e, 0x3e, 0x03, 0x01, 0x8E, 0x02, 0x9E, 0xA7, 0x05, 0x9D, 0xA7, 0x05}
	reader := NewStatsReader(bytes.NewReader(feed))
	account, err := reader.ReadAccount()
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), account.ID)
	assert.Equal(t, []Tank{{ID: 270, Battles: 86942, Wins: 86941}}, account.Tanks)
	_, err = reader.ReadAccount()
	assert.Equal(t, io.EOF, err)
}

func TestStatsReader_Empty(t *testing.T) {
	reader := NewStatsReader(bytes.NewReader(nil))
	_, err := reader.ReadAccount()
	assert.Equal(t, io.EOF, err)
}

func TestStatsReader_Truncated(t *testing.T) {
	feed := []byte{0x3e, 0x3e, 0x03, 0x01, 0x8E, 0x02, 0x9E, 0xA7, 0x05, 0x9D, 0xA7, 0x05}
	for _, n := range []int{1, 3, 5, 11} {
		reader := NewStatsReader(bytes.NewReader(feed[:n]))
		_, err := reader.ReadAccount()
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "truncated at %d: %v", n, err)
	}
	// incomplete varint
	reader := NewStatsReader(bytes.NewReader([]byte{0x3e, 0x3e, 0x80}))
	_, err := reader.ReadAccount()
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestAppendAccount(t *testing.T) {
	accounts := []*Account{
		{ID: 3, Tanks: []Tank{{ID: 270, Battles: 86942, Wins: 86941}}},
		{ID: 1 << 40, Tanks: []Tank{}},
		{ID: 7, Tanks: []Tank{{ID: 1, Battles: 10, Wins: 5}, {ID: 2, Battles: 300, Wins: 299}}},
	}
	var feed []byte
	for _, account := range accounts {
		feed = AppendAccount(feed, account)
	}
	assert.Equal(t, []byte{0x3e, 0x3e, 0x03, 0x01, 0x8E, 0x02, 0x9E, 0xA7, 0x05, 0x9D, 0xA7, 0x05}, feed[:12])
	reader := NewStatsReader(bytes.NewReader(feed))
	for _, expected := range accounts {
		account, err := reader.ReadAccount()
		assert.NoError(t, err)
		assert.Equal(t, expected, account)
	}
	_, err := reader.ReadAccount()
	assert.Equal(t, io.EOF, err)
}
