package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/keczkasz/studywave/internal/cache"
)

var (
	cacheClear bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the processed text cache",
		Long:    paragraph(fmt.Sprintf("\n%s how much space preprocessed documents take, or clear them.", keyword("Show"))),
		Example: paragraph("studywave cache\nstudywave cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := cache.Open(cfg.Cache.Path, int64(cfg.Cache.MaxSize))
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if cacheClear {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Println("Cache cleared")
				return nil
			}
			return printCacheStats(os.Stdout, store.Stats()[cache.LevelDisk])
		},
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "remove every cached document")
}

func printCacheStats(w io.Writer, s cache.Stats) error {
	used := 0.0
	if s.Capacity > 0 {
		used = float64(s.Size) / float64(s.Capacity) * 100
	}
	_, err := fmt.Fprintf(w, "%s %s documents, %s of %s (%.0f%%)\n",
		keyword("Cache:"),
		humanize.Comma(int64(s.Items)),
		humanize.Bytes(uint64(max(s.Size, 0))),
		humanize.Bytes(uint64(max(s.Capacity, 0))),
		used,
	)
	return err
}
