// Package encode renders blocks and transactions as SQL value tuples or as
// tab separated bulk copy lines. All functions are pure.
package encode

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/Conflux-Chain/confura-pg-pipe/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// NullToken marks an absent value in copy lines.
	NullToken = "NULL"

	sqlNull = "NULL"

	// copyHexPrefix is the escaped bytea hex prefix in the copy text format.
	copyHexPrefix = `\\x`
)

var (
	_ Record = BlockRecord{}
	_ Record = TransactionRecord{}
)

// Record is a domain value that could be written as a table row.
type Record interface {
	Table() Table
	InsertValues() string
	CopyValues() string
}

// Encode renders record in the given mode.
func Encode(record Record, mode Mode) string {
	if mode == Copy {
		return record.CopyValues()
	}

	return record.InsertValues()
}

func insertBytes(b []byte) string {
	return "DECODE('" + hex.EncodeToString(b) + "','hex')"
}

func copyBytes(b []byte) string {
	return copyHexPrefix + hex.EncodeToString(b)
}

func insertAddress(addr *common.Address) string {
	if addr == nil {
		return sqlNull
	}

	return insertBytes(addr.Bytes())
}

func copyAddress(addr *common.Address) string {
	if addr == nil {
		return NullToken
	}

	return copyBytes(addr.Bytes())
}

func decimal(v *big.Int, null string) string {
	if v == nil {
		return null
	}

	return v.String()
}

func number(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// BlockRecord encodes a block row.
type BlockRecord struct {
	*types.Block
}

func (BlockRecord) Table() Table {
	return BlockTable
}

func (r BlockRecord) InsertValues() string {
	return "(" + strings.Join([]string{
		number(r.Number),
		insertBytes(r.Hash.Bytes()),
		"TO_TIMESTAMP(" + number(r.Timestamp) + ")",
	}, ", ") + ")"
}

// CopyValues renders the timestamp as the expression text TO_TIMESTAMP(n), which the
// destination loader has to post-process. Blocks are never copied by the pipe itself.
func (r BlockRecord) CopyValues() string {
	return strings.Join([]string{
		number(r.Number),
		copyBytes(r.Hash.Bytes()),
		"TO_TIMESTAMP(" + number(r.Timestamp) + ")",
	}, "\t")
}

// TransactionRecord encodes a transaction row.
type TransactionRecord struct {
	*types.Transaction
}

func (TransactionRecord) Table() Table {
	return TransactionTable
}

func (r TransactionRecord) InsertValues() string {
	return "(" + strings.Join([]string{
		insertBytes(r.Hash.Bytes()),
		number(r.Nonce),
		insertBytes(r.BlockHash.Bytes()),
		number(r.BlockNumber),
		number(r.TransactionIndex),
		insertAddress(r.From),
		insertAddress(r.To),
		decimal(r.Value, "0"),
		number(r.Gas),
		decimal(r.GasPrice, sqlNull),
	}, ", ") + ")"
}

func (r TransactionRecord) CopyValues() string {
	return strings.Join([]string{
		copyBytes(r.Hash.Bytes()),
		number(r.Nonce),
		copyBytes(r.BlockHash.Bytes()),
		number(r.BlockNumber),
		number(r.TransactionIndex),
		copyAddress(r.From),
		copyAddress(r.To),
		decimal(r.Value, "0"),
		number(r.Gas),
		decimal(r.GasPrice, NullToken),
	}, "\t")
}
