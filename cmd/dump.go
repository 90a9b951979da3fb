package cmd

import (
	"context"
	"fmt"

	"github.com/Conflux-Chain/confura-pg-pipe/encode"
	"github.com/Conflux-Chain/confura-pg-pipe/node"
	pipeSync "github.com/Conflux-Chain/confura-pg-pipe/sync"
	"github.com/Conflux-Chain/go-conflux-util/cmd"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dumpCmdArgs struct {
		url       string
		transport string
		mode      string
		blockFrom int64
		numBlocks uint64
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print encoded SQL statements or COPY lines of blocks from node to stdout, without any database access",
		Run:   dump,
	}
)

func init() {
	dumpCmd.Flags().StringVar(&dumpCmdArgs.url, "url", node.DefaultConfig().URL, "Node HTTP endpoint or IPC socket path")
	dumpCmd.Flags().StringVar(&dumpCmdArgs.transport, "transport", node.TransportWeb3, "Node transport, web3 or rpc")
	dumpCmd.Flags().StringVar(&dumpCmdArgs.mode, "mode", encode.Insert.String(), "Encoding mode, insert or copy")
	dumpCmd.Flags().Int64Var(&dumpCmdArgs.blockFrom, "block-from", -10, "Block number to dump from, negative value means \"latest\" - N")
	dumpCmd.Flags().Uint64Var(&dumpCmdArgs.numBlocks, "blocks", 10, "Number of blocks to dump")

	rootCmd.AddCommand(dumpCmd)
}

func dump(*cobra.Command, []string) {
	ctx := context.Background()

	mode, err := encode.ParseMode(dumpCmdArgs.mode)
	cmd.FatalIfErr(err, "Invalid mode")

	config := node.DefaultConfig()
	config.URL = dumpCmdArgs.url
	config.Transport = dumpCmdArgs.transport
	config.DialRetries = 1

	client, err := node.Dial(ctx, config)
	cmd.FatalIfErr(err, "Failed to connect to node")
	defer client.Close()

	blockFrom, blockTo := mustNormalizeBlockRange(ctx, client, dumpCmdArgs.blockFrom, dumpCmdArgs.numBlocks)
	logrus.WithField("from", blockFrom).WithField("to", blockTo).Info("Block range normalized")

	assembler := pipeSync.NewAssembler(client, mode, dumpCmdArgs.numBlocks, nil)
	batch, err := assembler.Assemble(ctx, blockFrom, blockTo)
	cmd.FatalIfErr(err, "Failed to assemble blocks")

	fmt.Println(batch.BlocksStatement(mode == encode.Insert) + ";")

	if batch.NumTxs > 0 {
		if mode == encode.Insert {
			fmt.Println(batch.TransactionsStatement() + ";")
		} else {
			fmt.Println(encode.TransactionTable.CopyHeader() + ";")
			fmt.Print(batch.CopyData())
			fmt.Println(`\.`)
		}
	}

	logrus.WithFields(logrus.Fields{
		"blocks": batch.NumBlocks,
		"txs":    batch.NumTxs,
		"bytes":  batch.Size(),
	}).Info("Succeeded to dump blocks")
}

func mustNormalizeBlockRange(ctx context.Context, client node.Client, blockFrom int64, numBlocks uint64) (uint64, uint64) {
	if numBlocks == 0 {
		logrus.Fatal("Number of blocks should be greater than 0")
	}

	latest, err := client.TipHeight(ctx)
	cmd.FatalIfErr(err, "Failed to get latest block")

	// normalize block from
	var from uint64
	if blockFrom >= 0 {
		from = uint64(blockFrom)
	} else if latest < uint64(-blockFrom) {
		logrus.WithField("latest", latest).Fatal("Invalid block from")
	} else {
		from = latest - uint64(-blockFrom)
	}

	// check arguments
	if from > latest {
		logrus.WithField("latest", latest).WithField("from", from).Fatal("Invalid block from")
	}

	to := from + numBlocks - 1
	if to > latest {
		logrus.WithField("latest", latest).WithField("to", to).Fatal("Invalid block to")
	}

	return from, to
}
