package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-ticketform/internal/prompt"
	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/session"
)

func newCategoriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories with a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tTITLE\tVARIANT")
			for _, name := range a.engine.Categories() {
				cat, _ := a.engine.Category(name)
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, cat.Title, a.engine.Variants().Resolve(name).Name)
			}
			return w.Flush()
		},
	}
}

func newNewCommand(a *app) *cobra.Command {
	var prefill []string
	cmd := &cobra.Command{
		Use:   "new <category>",
		Short: "Author a new ticket interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(prefill)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, err := a.engine.Start(ctx, args[0], catalog.TemplateContext{Prefill: values}, a.sessionOptions()...)
			if err != nil {
				return err
			}
			defer s.Close()
			return a.author(ctx, cmd, s)
		},
	}
	cmd.Flags().StringArrayVar(&prefill, "set", nil, "pre-fill a field, as field_id=value (repeatable)")
	return cmd
}

func newEditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <ticket-id>",
		Short: "Edit a stored ticket interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			s, err := a.engine.Edit(ctx, args[0], a.sessionOptions()...)
			if err != nil {
				return err
			}
			defer s.Close()
			return a.author(ctx, cmd, s)
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Print a stored ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.engine.Tickets().FetchTicket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeTicket(cmd.OutOrStdout(), doc, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text|json|yaml")
	return cmd
}

func newTicketsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "List stored tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.requireStore("tickets")
			if err != nil {
				return err
			}
			list, err := store.Tickets(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKET\tCATEGORY\tUPDATED\tSUMMARY")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.TicketID, t.Category, t.UpdatedAt.Format("2006-01-02 15:04"), t.Summary)
			}
			return w.Flush()
		},
	}
}

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Merge catalog options and existing entries from a YAML seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireStore("catalog import")
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			stats, err := store.ImportSeed(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d options and %d existing entries into %s\n", stats.Options, stats.Existing, store.Path())
			return nil
		},
	})
	return cmd
}

func (a *app) sessionOptions() []session.Option {
	return []session.Option{
		session.WithNotifier(func(n session.Notification) {
			a.logger.Warn("session notification", "path", n.Path, "message", n.Message)
		}),
	}
}

func (a *app) author(ctx context.Context, cmd *cobra.Command, s *session.Session) error {
	author := prompt.New(
		prompt.WithDriver(prompt.NewSurveyDriver(cmd.OutOrStdout())),
		prompt.WithLogger(a.logger),
	)
	res, err := author.Run(ctx, s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ticket %s submitted\n", res.Receipt.TicketID)
	return nil
}

func parseAssignments(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want field_id=value", item)
		}
		out[key] = value
	}
	return out, nil
}
