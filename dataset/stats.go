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
	"bufio"
	"io"

	"github.com/juju/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	headerSize      = 2
	maxVarintLength = 10
	readBufferSize  = 1 << 20
)

// header precedes every account record.
var header = [headerSize]byte{0x3e, 0x3e}

type Tank struct {
	ID      uint64
	Battles uint64
	Wins    uint64
}

type Account struct {
	ID    uint64
	Tanks []Tank
}

// StatsReader reads account records from a statistics feed. A record is a 2-byte header
// followed by uvarints: account id, tank count and (tank id, battles, wins) per tank.
type StatsReader struct {
	r *bufio.Reader
}

func NewStatsReader(r io.Reader) *StatsReader {
	return &StatsReader{r: bufio.NewReaderSize(r, readBufferSize)}
}

// ReadAccount returns the next account. It returns io.EOF at the end of the feed and
// io.ErrUnexpectedEOF if the feed ends inside a record.
func (s *StatsReader) ReadAccount() (*Account, error) {
	var buf [headerSize]byte
	n, err := io.ReadFull(s.r, buf[:])
	if n == 0 && err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, errors.Annotate(io.ErrUnexpectedEOF, "read account header")
	}
	id, err := s.readUvarint()
	if err != nil {
		return nil, errors.Annotate(err, "read account id")
	}
	count, err := s.readUvarint()
	if err != nil {
		return nil, errors.Annotatef(err, "read tank count of account %d", id)
	}
	account := &Account{ID: id, Tanks: make([]Tank, 0, min(count, 1024))}
	for i := uint64(0); i < count; i++ {
		var tank Tank
		if tank.ID, err = s.readUvarint(); err != nil {
			return nil, errors.Annotatef(err, "read tank %d of account %d", i, id)
		}
		if tank.Battles, err = s.readUvarint(); err != nil {
			return nil, errors.Annotatef(err, "read battles of tank %d of account %d", tank.ID, id)
		}
		if tank.Wins, err = s.readUvarint(); err != nil {
			return nil, errors.Annotatef(err, "read wins of tank %d of account %d", tank.ID, id)
		}
		account.Tanks = append(account.Tanks, tank)
	}
	return account, nil
}

func (s *StatsReader) readUvarint() (uint64, error) {
	buf, err := s.r.Peek(maxVarintLength)
	if err != nil && err != io.EOF {
		return 0, errors.Trace(err)
	}
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		if len(buf) < maxVarintLength {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, errors.Trace(protowire.ParseError(n))
	}
	if _, err = s.r.Discard(n); err != nil {
		return 0, errors.Trace(err)
	}
	return v, nil
}

// AppendAccount appends the record of an account to b.
func AppendAccount(b []byte, account *Account) []byte {
	b = append(b, header[:]...)
	b = protowire.AppendVarint(b, account.ID)
	b = protowire.AppendVarint(b, uint64(len(account.Tanks)))
	for _, tank := range account.Tanks {
		b = protowire.AppendVarint(b, tank.ID)
		b = protowire.AppendVarint(b, tank.Battles)
		b = protowire.AppendVarint(b, tank.Wins)
	}
	return b
}
