// tdbtool inspects and manipulates tdb databases from the command line.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"git.tcp.direct/tcp.direct/tdb"

	// file engines available to the tool
	_ "git.tcp.direct/tcp.direct/tdb/bitcask"
	_ "git.tcp.direct/tcp.direct/tdb/pogreb"
)

var (
	log zerolog.Logger

	dbPath     string
	engineName string

	rootCmd = &cobra.Command{
		Use:           "tdbtool",
		Short:         "inspect and manipulate tdb databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func openDB(flags tdb.Flag) (*tdb.DB, error) {
	var opts []tdb.Option
	if engineName != "" {
		opts = append(opts, tdb.WithEngine(engineName))
	}
	return tdb.Open(dbPath, flags, 0, opts...)
}

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to the database directory")
	rootCmd.PersistentFlags().StringVarP(&engineName, "engine", "e", "", "storage engine (bitcask, pogreb, memory)")
	_ = rootCmd.MarkPersistentFlagRequired("db")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
