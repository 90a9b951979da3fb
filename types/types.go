package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Block is a canonical chain block as observed by the node at fetch time.
//
// A block fetched at height N never changes, but after a reorg a different
// block may occupy the same height.
type Block struct {
	Number       uint64
	Hash         common.Hash
	Timestamp    uint64 // unix seconds
	Transactions []Transaction
}

// Transaction is a transaction included in a block. Hash is the natural key.
type Transaction struct {
	Hash             common.Hash
	Nonce            uint64
	BlockHash        common.Hash
	BlockNumber      uint64
	TransactionIndex uint64
	From             *common.Address
	To               *common.Address // nil for contract creation
	Value            *big.Int
	Gas              uint64
	GasPrice         *big.Int
}
