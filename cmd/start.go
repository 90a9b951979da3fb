package cmd

import (
	"context"
	"os"
	"sync"

	"github.com/Conflux-Chain/confura-pg-pipe/node"
	"github.com/Conflux-Chain/confura-pg-pipe/store/postgres"
	pipeSync "github.com/Conflux-Chain/confura-pg-pipe/sync"
	"github.com/Conflux-Chain/go-conflux-util/cmd"
	viperUtil "github.com/Conflux-Chain/go-conflux-util/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start to sync blocks and transactions from node into Postgres database",
	Long: `Start to sync blocks and transactions from node into Postgres database.

In copy mode, transactions are written to stdout as COPY lines, which could be piped into a bulk loader.`,
	Run: start,
}

func init() {
	startCmd.Flags().String("mode", pipeSync.DefaultConfig().Mode, "Write mode, insert or copy")
	viper.BindPFlag("sync.mode", startCmd.Flag("mode"))

	startCmd.Flags().Uint64("start-block", 0, "Block number to sync after if larger than the stored one")
	viper.BindPFlag("sync.startBlock", startCmd.Flag("start-block"))

	startCmd.Flags().String("dsn", "", "Postgres DSN")
	viper.BindPFlag("store.postgres.dsn", startCmd.Flag("dsn"))

	startCmd.Flags().String("node-url", node.DefaultConfig().URL, "Node HTTP endpoint or IPC socket path")
	viper.BindPFlag("node.url", startCmd.Flag("node-url"))

	rootCmd.AddCommand(startCmd)
}

func start(*cobra.Command, []string) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// connect to database and apply migrations
	var storeConfig postgres.Config
	viperUtil.MustUnmarshalKey("store.postgres", &storeConfig)
	store, err := postgres.NewStore(ctx, storeConfig)
	cmd.FatalIfErr(err, "Failed to create postgres store")
	defer store.Close()

	// connect to node
	var nodeConfig node.Config
	viperUtil.MustUnmarshalKey("node", &nodeConfig)
	client, err := node.Dial(ctx, nodeConfig)
	cmd.FatalIfErr(err, "Failed to connect to node")
	defer client.Close()

	// run pipe
	var syncConfig pipeSync.Config
	viperUtil.MustUnmarshalKey("sync", &syncConfig)
	pipe, err := pipeSync.NewPipe(ctx, syncConfig, client, store, os.Stdout)
	cmd.FatalIfErr(err, "Failed to create pipe")

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := pipe.Run(ctx); err != nil {
			logrus.WithError(err).Fatal("Pipe terminated abnormally")
		}
	}()

	// wait for terminate signal to shutdown gracefully
	cmd.GracefulShutdown(&wg, cancel)
}
