package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-circulation/config"
	"library-circulation/library"
)

// ------------------ Books ------------------

func (a *app) bookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}

	var copies int
	add := &cobra.Command{
		Use:   "add <isbn> <title> <author>",
		Short: "Add a title to the catalog",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.mgr.AddBook(cmd.Context(), args[0], args[1], args[2], copies)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Added '%s' (%s) with %d copies\n", b.Title, b.ISBN, b.TotalCopies)
			return nil
		},
	}
	add.Flags().IntVar(&copies, "copies", 1, "number of copies owned")

	var title, author string
	update := &cobra.Command{
		Use:   "update <isbn>",
		Short: "Change a title's details or number of copies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.mgr.GetBook(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("title") {
				title = cur.Title
			}
			if !cmd.Flags().Changed("author") {
				author = cur.Author
			}
			if !cmd.Flags().Changed("copies") {
				copies = cur.TotalCopies
			}
			b, err := a.mgr.UpdateBook(cmd.Context(), args[0], title, author, copies)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			printBook(a.out, b)
			return nil
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&author, "author", "", "new author")
	update.Flags().IntVar(&copies, "copies", 0, "new total number of copies")

	del := &cobra.Command{
		Use:   "delete <isbn>",
		Short: "Remove a title; all copies must be on the shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.DeleteBook(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <isbn>",
		Short: "Show one title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.mgr.GetBook(args[0])
			if err != nil {
				return err
			}
			printBook(a.out, b)
			return nil
		},
	}

	var by string
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find titles by title or author substring (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var books []library.Book
			switch by {
			case "title":
				books = a.mgr.SearchByTitle(args[0])
			case "author":
				books = a.mgr.SearchByAuthor(args[0])
			case "any":
				books = a.mgr.SearchBooks(args[0])
			default:
				return fmt.Errorf("--by must be title, author or any")
			}
			printBooks(a.out, books)
			return nil
		},
	}
	search.Flags().StringVar(&by, "by", "any", "field to match: title, author or any")

	top := &cobra.Command{
		Use:   "top [n]",
		Short: "List the most borrowed titles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 5
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
				n = v
			}
			printBooks(a.out, a.mgr.MostBorrowed(n))
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBooks(a.out, a.mgr.GetAllBooks())
			return nil
		},
	}

	cmd.AddCommand(add, update, del, show, search, top, list)
	return cmd
}

// ------------------ Members ------------------

func (a *app) memberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage the member registry"}

	add := &cobra.Command{
		Use:   "add <id> <name> <email>",
		Short: "Register a member",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mgr.AddMember(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Added member '%s' with ID %s\n", m.Name, m.ID)
			return nil
		},
	}

	var name, email string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a member's name or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.mgr.GetMember(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				name = cur.Name
			}
			if !cmd.Flags().Changed("email") {
				email = cur.Email
			}
			m, err := a.mgr.UpdateMember(cmd.Context(), args[0], name, email)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			printMember(a.out, m)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&email, "email", "", "new email")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a member who holds no books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.DeleteMember(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Deleted member %s\n", args[0])
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.mgr.GetMember(args[0])
			if err != nil {
				return err
			}
			printMember(a.out, m)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printMembers(a.out, a.mgr.GetAllMembers())
			return nil
		},
	}

	loans := &cobra.Command{
		Use:   "loans <id>",
		Short: "List a member's open loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.mgr.GetMember(args[0]); err != nil {
				return err
			}
			printTransactions(a.out, a.mgr.ActiveTransactions(args[0]), a.mgr.Today(), a.mgr.Policy().FinePerDay)
			return nil
		},
	}

	cmd.AddCommand(add, update, del, show, list, loans)
	return cmd
}

// ------------------ Circulation ------------------

func (a *app) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <member-id> <isbn>",
		Short: "Lend a copy to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.mgr.IssueBook(cmd.Context(), args[0], args[1])
			if err != nil && t.ID == "" {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Book '%s' issued to %s, due %s\n", t.BookTitle, t.MemberName, t.DueDate)
			fmt.Fprintf(a.out, "Transaction: %s\n", t.ID)
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			return nil
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <transaction-id>",
		Short: "Take a copy back and settle the fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.mgr.ReturnBook(cmd.Context(), args[0])
			if err != nil && t.ID == "" {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Book '%s' returned by %s\n", t.BookTitle, t.MemberName)
			if t.Fine > 0 {
				fmt.Fprintf(a.out, "Fine due: %.2f\n", t.Fine)
			} else {
				fmt.Fprintln(a.out, "No fine due")
			}
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			return nil
		},
	}
}

func (a *app) loansCmd() *cobra.Command {
	var (
		member  string
		active  bool
		overdue bool
	)
	cmd := &cobra.Command{
		Use:   "loans [transaction-id]",
		Short: "List loans, or show one loan with its current fine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			today := a.mgr.Today()
			if len(args) == 1 {
				t, err := a.mgr.GetTransaction(args[0])
				if err != nil {
					return err
				}
				fine, err := a.mgr.CurrentFine(t.ID)
				if err != nil {
					return err
				}
				printTransaction(a.out, t, today, fine)
				return nil
			}

			var txns []library.Transaction
			switch {
			case overdue:
				txns = a.mgr.OverdueTransactions()
			case member != "" && active:
				txns = a.mgr.ActiveTransactions(member)
			default:
				txns = a.mgr.AllTransactions()
			}
			filtered := txns[:0]
			for _, t := range txns {
				if member != "" && t.MemberID != member {
					continue
				}
				if active && !t.Active {
					continue
				}
				filtered = append(filtered, t)
			}
			printTransactions(a.out, filtered, today, a.mgr.Policy().FinePerDay)
			return nil
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "only loans of this member")
	cmd.Flags().BoolVar(&active, "active", false, "only loans not yet returned")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue loans")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog and circulation totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printStats(a.out, a.mgr.Stats())
			return nil
		},
	}
}

// ------------------ Users ------------------

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage shell accounts"}

	var role string
	register := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account; the password is prompted for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword(fmt.Sprintf("Enter password for %s: ", args[0]))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			u, err := a.mgr.RegisterUser(cmd.Context(), args[0], password, library.Role(strings.ToUpper(role)))
			if err != nil {
				return fmt.Errorf("%s", describe(err))
			}
			fmt.Fprintf(a.out, "Registered %s as %s\n", u.Username, u.Role)
			return nil
		},
	}
	register.Flags().StringVar(&role, "role", string(library.RoleMember), "ADMIN or MEMBER")

	login := &cobra.Command{
		Use:   "login <username>",
		Short: "Check a username and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			u, err := a.mgr.Login(args[0], password)
			if err != nil {
				return fmt.Errorf("invalid username or password")
			}
			fmt.Fprintf(a.out, "Welcome, %s (%s)\n", u.Username, u.Role)
			return nil
		},
	}

	cmd.AddCommand(register, login)
	return cmd
}

// ------------------ Config ------------------

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage the configuration file"}

	var (
		path  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with the default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipLibrary: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			var err error
			if force {
				err = config.WriteFile(config.Default(), path, true)
			} else {
				err = config.WriteDefault(path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "where to write (default is the user config file)")
	initCmd.Flags().BoolVar(&force, "force", false, "replace an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell(cmd)
		},
	}
}
