// Command import_books loads catalog entries from a CSV file with the
// columns isbn,title,author[,copies] into the configured store.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/config"
	"library-circulation/library"
	"library-circulation/logger"
	"library-circulation/storage"
)

func main() {
	if err := newImportCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd(out io.Writer) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:          "import_books <file.csv>",
		Short:        "Add titles from a CSV file (isbn,title,author[,copies])",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			store, err := storage.Open(cmd.Context(), cfg.Storage)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			mgr, err := library.NewLibraryManager(cmd.Context(), store, library.Options{
				Policy: cfg.Policy.Library(),
				Logger: log.With("driver", string(cfg.Storage.Driver), "import", args[0]),
			})
			if err != nil {
				store.Close()
				return fmt.Errorf("open library: %w", err)
			}
			defer mgr.Close()

			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			res, err := importBooks(cmd.Context(), mgr, f, out)
			if err != nil {
				return err
			}
			printSummary(out, res, mgr)
			if res.failed > 0 {
				return fmt.Errorf("%d rows could not be imported", res.failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file")
	cmd.Flags().String("storage-driver", "fs", "storage backend (fs, sqlite, postgres, s3, memory)")
	cmd.Flags().String("data-dir", "data", "directory for the fs backend")
	cmd.Flags().String("sqlite-path", "data/library.db", "database file for the sqlite backend")
	cmd.Flags().String("postgres-dsn", "", "connection string for the postgres backend")
	cmd.Flags().String("log-mode", "dev", `log format ("dev" or "prod")`)
	return cmd
}

type result struct {
	imported []string
	failed   int
}

// importBooks adds one title per CSV row and reports each row on out. A
// header row starting with "isbn" is skipped. Rows that fail are counted and
// the import continues; a malformed file stops it.
func importBooks(ctx context.Context, mgr *library.LibraryManager, r io.Reader, out io.Writer) (result, error) {
	var res result
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read import file: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "isbn") {
			continue
		}

		isbn, title, author, copies, err := parseRow(rec)
		if err != nil {
			fmt.Fprintf(out, "Row %d: ERROR - %v\n", line, err)
			res.failed++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		if _, err := mgr.AddBook(ctx, isbn, title, author, copies); err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.failed++
			if library.KindOf(err) == library.KindPersistenceFailure {
				return res, err
			}
			continue
		}
		fmt.Fprintf(out, "SUCCESS (%d copies)\n", copies)
		res.imported = append(res.imported, isbn)
	}
}

func parseRow(rec []string) (isbn, title, author string, copies int, err error) {
	if len(rec) < 3 || len(rec) > 4 {
		return "", "", "", 0, fmt.Errorf("want 3 or 4 columns, got %d", len(rec))
	}
	isbn, title, author = strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), strings.TrimSpace(rec[2])
	copies = 1
	if len(rec) == 4 && strings.TrimSpace(rec[3]) != "" {
		copies, err = strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return "", "", "", 0, fmt.Errorf("invalid copies %q", rec[3])
		}
	}
	return isbn, title, author, copies, nil
}

func printSummary(out io.Writer, res result, mgr *library.LibraryManager) {
	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(res.imported))
	fmt.Fprintf(out, "Errors: %d\n", res.failed)

	if len(res.imported) == 0 {
		return
	}
	fmt.Fprintln(out, "\nImported books:")
	fmt.Fprintf(out, "%-15s %-50s %-30s %s\n", "ISBN", "Title", "Author", "Copies")
	fmt.Fprintln(out, strings.Repeat("-", 105))
	for _, isbn := range res.imported {
		b, err := mgr.GetBook(isbn)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "%-15s %-50s %-30s %d\n", b.ISBN, truncateString(b.Title, 50), truncateString(b.Author, 30), b.TotalCopies)
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
