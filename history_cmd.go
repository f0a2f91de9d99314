package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/keczkasz/studywave/internal/progress"
)

var (
	historyLimit  int
	historyForget string

	historyCmd = &cobra.Command{
		Use:     "history",
		Short:   "Show listening progress",
		Long:    paragraph(fmt.Sprintf("\n%s the documents you have listened to and where you left them.", keyword("List"))),
		Example: paragraph("studywave history\nstudywave history --forget 3f2a"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := progress.Open(cfg.Progress.Path)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if historyForget != "" {
				return forget(ctx, store, historyForget)
			}

			entries, err := store.List(ctx, historyLimit)
			if err != nil {
				return err
			}
			return printHistory(os.Stdout, entries)
		},
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of documents to show (0 for all)")
	historyCmd.Flags().StringVar(&historyForget, "forget", "", "remove the document with this id prefix")
}

// forget deletes the single entry whose id starts with prefix.
func forget(ctx context.Context, store *progress.Store, prefix string) error {
	entries, err := store.List(ctx, 0)
	if err != nil {
		return err
	}

	var match *progress.Entry
	for i := range entries {
		if strings.HasPrefix(entries[i].DocumentID, prefix) {
			if match != nil {
				return fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return fmt.Errorf("no document with id prefix %q", prefix)
	}

	if err := store.Delete(ctx, match.DocumentID); err != nil {
		return err
	}
	fmt.Println("Forgot", match.Title)
	return nil
}

func printHistory(w io.Writer, entries []progress.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, faint("Nothing listened to yet."))
		return nil
	}

	t := newTable("ID", "TITLE", "PROGRESS", "LISTENED", "VOICE", "UPDATED")
	for _, e := range entries {
		pos := fmt.Sprintf("%.0f%%", e.Fraction*100)
		if e.Completed {
			pos = "done"
		}
		t.Row(
			e.DocumentID[:min(8, len(e.DocumentID))],
			truncate.StringWithTail(e.Title, 40, "…"),
			pos,
			clock(e.Listened),
			e.Personality,
			humanize.Time(e.UpdatedAt),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
