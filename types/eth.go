package types

import (
	"github.com/pkg/errors"
)

// Verify checks that every transaction is linked to the block it was fetched with.
//
// A node that is reorganizing may serve a block body whose transactions still point
// to the replaced block, in which case the data must not be stored.
func (b *Block) Verify() error {
	for i, tx := range b.Transactions {
		// Check if the transaction's BlockHash matches the actual block's hash
		if tx.BlockHash != b.Hash {
			return errors.Errorf(
				"transaction #%d (%s) block hash mismatch: transaction has %s, expected block %s",
				i, tx.Hash, tx.BlockHash, b.Hash,
			)
		}

		if tx.BlockNumber != b.Number {
			return errors.Errorf(
				"transaction #%d (%s) block number mismatch: transaction has %d, expected %d",
				i, tx.Hash, tx.BlockNumber, b.Number,
			)
		}

		// Check TxIndex consistency
		if tx.TransactionIndex != uint64(i) {
			return errors.Errorf(
				"transaction #%d (%s) index mismatch: transaction has %d, expected %d in block %s",
				i, tx.Hash, tx.TransactionIndex, i, b.Hash,
			)
		}
	}

	return nil
}

// NumTransactions returns the number of transactions in block.
func (b *Block) NumTransactions() int {
	return len(b.Transactions)
}
