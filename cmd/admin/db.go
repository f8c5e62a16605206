package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"u8sim/internal/persistence/indexdb"
)

var (
	flagDBPath string
	flagLimit  int
	flagFrom   uint64
	flagTo     uint64
)

var dbCmd = &cobra.Command{
	Use:       "db snapshots|ticks|catalogs",
	Short:     "Query the world's sqlite index",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"snapshots", "ticks", "catalogs"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := flagDBPath
		if path == "" {
			path = filepath.Join(worldDir(), "index", "world.sqlite")
		}
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer idx.Close()

		switch args[0] {
		case "snapshots":
			rows, err := idx.Snapshots(flagLimit)
			if err != nil {
				return err
			}
			printJSON(rows)
		case "ticks":
			to := flagTo
			if to == 0 {
				to = flagFrom + uint64(flagLimit) - 1
			}
			rows, err := idx.Ticks(flagFrom, to)
			if err != nil {
				return err
			}
			printJSON(rows)
		case "catalogs":
			out := map[string]string{}
			for _, name := range []string{"shapes", "firetypes", "tuning"} {
				d, err := idx.CatalogDigest(name)
				if err != nil {
					newLogger().Warn("catalog missing", "name", name, "err", err)
					continue
				}
				out[name] = d
			}
			printJSON(out)
		default:
			return fmt.Errorf("unknown query %q", args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		return idx.Sync(ctx)
	},
}

func init() {
	dbCmd.Flags().StringVar(&flagDBPath, "db", "", "sqlite db path (default: <data>/worlds/<world>/index/world.sqlite)")
	dbCmd.Flags().IntVar(&flagLimit, "limit", 20, "Result limit")
	dbCmd.Flags().Uint64Var(&flagFrom, "from", 0, "First tick (ticks)")
	dbCmd.Flags().Uint64Var(&flagTo, "to", 0, "Last tick, inclusive (ticks; default from+limit-1)")
}
