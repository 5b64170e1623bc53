package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-circulation/config"
	"library-circulation/library"
	"library-circulation/logger"
	"library-circulation/storage"
)

// Commands annotated with skipLibrary run without opening the store.
const skipLibrary = "skip-library"

// app carries what every command needs once the root has set it up.
type app struct {
	cfgFile string
	cfg     config.Config
	log     *logger.Logger
	mgr     *library.LibraryManager

	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}
	cmd := &cobra.Command{
		Use:   "library-circulation",
		Short: "Lend books, track due dates and charge late fines.",
		Long: `library-circulation keeps a catalog of titles and copies, a member
registry and a ledger of loans. Loans are due after a fixed period and
late returns are fined per day.

Running without a subcommand starts the interactive shell.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is <user config dir>/library/library.yaml or ./library.yaml)")
	cmd.PersistentFlags().String("storage-driver", "fs", "storage backend (fs, sqlite, postgres, s3, memory)")
	cmd.PersistentFlags().String("data-dir", "data", "directory for the fs backend")
	cmd.PersistentFlags().String("sqlite-path", "data/library.db", "database file for the sqlite backend")
	cmd.PersistentFlags().String("postgres-dsn", "", "connection string for the postgres backend")
	cmd.PersistentFlags().String("log-mode", "dev", `log format ("dev" or "prod")`)

	cmd.AddCommand(
		a.bookCmd(),
		a.memberCmd(),
		a.issueCmd(),
		a.returnCmd(),
		a.loansCmd(),
		a.statsCmd(),
		a.userCmd(),
		a.configCmd(),
		a.shellCmd(),
	)
	return cmd
}

// setup loads configuration, then opens the store and the library for
// every command that needs them.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipLibrary] == "true" {
		return nil
	}
	cfg, err := config.Load(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	a.log = log.With("driver", string(cfg.Storage.Driver))

	store, err := storage.Open(cmd.Context(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	mgr, err := library.NewLibraryManager(cmd.Context(), store, library.Options{
		Policy:    cfg.Policy.Library(),
		Logger:    a.log,
		SeedAdmin: true,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("open library: %w", err)
	}
	a.mgr = mgr
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.log != nil {
		defer a.log.Sync()
	}
	if a.mgr == nil {
		return nil
	}
	return a.mgr.Close()
}

func (a *app) lines() *bufio.Scanner {
	if a.scanner == nil {
		a.scanner = bufio.NewScanner(a.in)
	}
	return a.scanner
}

// prompt prints label and reads one trimmed line; ok is false at end of input.
func (a *app) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	sc := a.lines()
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// readPassword reads a password with masking when input is a terminal, and
// as a plain line otherwise (pipes, tests).
func (a *app) readPassword(label string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out) // Add newline after password input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, ok := a.prompt(label)
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return line, nil
}
