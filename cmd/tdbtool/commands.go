package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"git.tcp.direct/tcp.direct/tdb"
	"git.tcp.direct/tcp.direct/tdb/backup"
	"git.tcp.direct/tcp.direct/tdb/migrate"
)

var (
	storeMode string

	storeCmd = &cobra.Command{
		Use:   "store [key] [value]",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := tdb.Replace
			switch storeMode {
			case "", "replace":
			case "insert":
				mode = tdb.Insert
			case "modify":
				mode = tdb.Modify
			default:
				return fmt.Errorf("unknown store mode %q", storeMode)
			}
			db, err := openDB(0)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Store([]byte(args[0]), []byte(args[1]), mode)
		},
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch [key]",
		Short: "Fetch the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			val, ok, err := db.Fetch([]byte(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q: %w", args[0], tdb.ErrNoExist)
			}
			_, err = os.Stdout.Write(append(val, '\n'))
			return err
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Delete([]byte(args[0]))
		},
	}

	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Check whether a key is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			ok, err := db.Exists([]byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}

	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "List all keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			it, err := db.Keys()
			if err != nil {
				return err
			}
			defer it.Release()
			for it.Next() {
				fmt.Printf("%s\n", it.Key())
			}
			return it.Err()
		},
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dump all records as key<TAB>value lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Traverse(func(key, value []byte) error {
				_, werr := fmt.Printf("%s\t%s\n", key, value)
				return werr
			})
		},
	}

	wipeConfirm bool

	wipeCmd = &cobra.Command{
		Use:   "wipe",
		Short: "Remove every record in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !wipeConfirm {
				return errors.New("wipe removes all records, pass --yes to confirm")
			}
			db, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Wipe()
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show database metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(tdb.MustExist | tdb.ReadOnly)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := db.Len()
			if err != nil {
				return err
			}
			fmt.Printf("path:    %s\nengine:  %s\nrecords: %d\n", db.Name(), db.Engine(), n)
			return nil
		},
	}

	backupCmd = &cobra.Command{
		Use:   "backup [out]",
		Short: "Archive the database directory to a tar.gz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bm, err := backup.New(dbPath, args[0])
			if err != nil {
				return err
			}
			log.Info().Str("archive", bm.Path()).Str("sha256", bm.Checksum.Value).
				Int64("size", bm.Size).Msg("backup written")
			return nil
		},
	}

	verifyCmd = &cobra.Command{
		Use:   "verify [archive]",
		Short: "Verify a backup archive against its metadata sidecar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bm, err := backup.LoadMetadata(args[0])
			if err != nil {
				return err
			}
			if err = backup.Verify(bm, args[0]); err != nil {
				return err
			}
			log.Info().Str("archive", args[0]).Msg("backup verified")
			return nil
		},
	}

	restoreCmd = &cobra.Command{
		Use:   "restore [archive]",
		Short: "Restore a backup archive into the database path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return backup.Restore(args[0], dbPath)
		},
	}

	migrateDst     string
	migrateEngine  string
	migrateClobber bool
	migrateSkip    bool

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Copy all records into another database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openDB(tdb.MustExist)
			if err != nil {
				return err
			}
			defer src.Close()
			var opts []tdb.Option
			if migrateEngine != "" {
				opts = append(opts, tdb.WithEngine(migrateEngine))
			}
			dst, err := tdb.Open(migrateDst, 0, 0, opts...)
			if err != nil {
				return err
			}
			defer dst.Close()
			m := migrate.New(src, dst)
			if migrateClobber {
				m.WithClobber()
			}
			if migrateSkip {
				m.WithSkipExisting()
			}
			copied, err := m.Run()
			if err != nil {
				return err
			}
			log.Info().Int("records", copied).Str("to", dst.Name()).Msg("migration complete")
			return nil
		},
	}
)

func init() {
	storeCmd.Flags().StringVarP(&storeMode, "mode", "m", "replace", "store mode: replace, insert or modify")
	wipeCmd.Flags().BoolVar(&wipeConfirm, "yes", false, "confirm wiping all records")
	migrateCmd.Flags().StringVar(&migrateDst, "to", "", "destination database path")
	migrateCmd.Flags().StringVar(&migrateEngine, "to-engine", "", "destination engine")
	migrateCmd.Flags().BoolVar(&migrateClobber, "clobber", false, "overwrite existing destination records")
	migrateCmd.Flags().BoolVar(&migrateSkip, "skip-existing", false, "skip existing destination records")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(storeCmd, fetchCmd, deleteCmd, existsCmd, keysCmd, dumpCmd,
		wipeCmd, infoCmd, backupCmd, verifyCmd, restoreCmd, migrateCmd)
}
