package main

import (
	"context"
	"fmt"

	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/spf13/cobra"
)

type pageFlags struct {
	page    int
	perPage int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.page, "page", 1, "page number")
	cmd.Flags().IntVar(&p.perPage, "per-page", railsr.DefaultPerPage, "items per page")
}

func (p *pageFlags) request() railsr.PageRequest {
	return railsr.PageRequest{Page: p.page, PerPage: p.perPage}
}

// runWithClients wraps a command body with client construction and a
// cancellable context.
func runWithClients(opts *globalOptions, fn func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		clients, err := opts.clients()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		return fn(ctx, cmd, clients, args)
	}
}

func newCustomersCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "List and inspect customers",
	}

	var pf pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			page, err := clients.Customers.List(ctx, pf.request())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "EMAIL", "STATUS", "KYC")
			for _, c := range page.Items {
				t.row(c.ID, c.FullName(), c.Email, c.Status, c.KYCStatus)
			}
			return t.flushPage(page.Page, page.TotalPages, page.Total)
		}),
	}
	pf.register(list)

	get := &cobra.Command{
		Use:   "get <customer-id>",
		Short: "Show one customer with its KYC status",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, args []string) error {
			customer, err := clients.Customers.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if customer == nil {
				return fmt.Errorf("customer %s not found", args[0])
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), customer)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", customer.ID)
			fmt.Fprintf(out, "Name:    %s\n", customer.FullName())
			fmt.Fprintf(out, "Email:   %s\n", customer.Email)
			fmt.Fprintf(out, "Phone:   %s\n", customer.PhoneNumber)
			fmt.Fprintf(out, "Status:  %s\n", customer.Status)
			fmt.Fprintf(out, "Created: %s\n", customer.CreatedAt)

			kyc, err := clients.Customers.KYCStatus(ctx, args[0])
			if err != nil {
				fmt.Fprintf(out, "KYC:     unavailable (%s)\n", railsr.KindOf(err))
				return nil
			}
			if kyc != nil {
				fmt.Fprintf(out, "KYC:     %s\n", kyc.Status)
			}
			return nil
		}),
	}

	cmd.AddCommand(list, get)
	return cmd
}

func newAccountsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and balances",
	}

	var (
		pf         pageFlags
		customerID string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts of the program or of one customer",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			var (
				page *railsr.Page[railsr.Account]
				err  error
			)
			if customerID != "" {
				page, err = clients.Accounts.ListByCustomer(ctx, customerID, pf.request())
			} else {
				page, err = clients.Accounts.ListAll(ctx, pf.request())
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "CUSTOMER", "TYPE", "STATUS", "BALANCE")
			for _, a := range page.Items {
				t.row(a.ID, a.CustomerLabel(), a.AccountType, a.Status, formatAmount(a.Balance.Float64(), a.Currency))
			}
			return t.flushPage(page.Page, page.TotalPages, page.Total)
		}),
	}
	pf.register(list)
	list.Flags().StringVar(&customerID, "customer", "", "only accounts of this customer")

	balances := &cobra.Command{
		Use:   "balances",
		Short: "Show total balances per currency",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			totals, err := clients.Accounts.Balances(ctx)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), totals)
			}
			t := newTable(cmd.OutOrStdout(), "CURRENCY", "TOTAL")
			for _, b := range totals {
				t.row(b.Currency, formatAmount(b.Value(), b.Currency))
			}
			return t.flush()
		}),
	}

	cmd.AddCommand(list, balances)
	return cmd
}

func newCardsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List cards",
	}

	var (
		pf         pageFlags
		customerID string
		cardType   string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List cards of the program or of one customer",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			var (
				page *railsr.Page[railsr.Card]
				err  error
			)
			if customerID != "" {
				page, err = clients.Cards.ListByCustomer(ctx, customerID, pf.request())
			} else {
				page, err = clients.Cards.ListAll(ctx, pf.request(), cardType)
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "CUSTOMER", "TYPE", "BRAND", "LAST4", "STATUS")
			for _, c := range page.Items {
				t.row(c.ID, c.CustomerID, c.CardType, c.CardBrand, c.LastFour, c.Status)
			}
			return t.flushPage(page.Page, page.TotalPages, page.Total)
		}),
	}
	pf.register(list)
	list.Flags().StringVar(&customerID, "customer", "", "only cards of this customer")
	list.Flags().StringVar(&cardType, "type", "", "virtual or physical")

	cmd.AddCommand(list)
	return cmd
}

func newTransactionsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions",
	}

	var (
		pf        pageFlags
		accountID string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions of the program or of one account",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			var (
				page *railsr.Page[railsr.Transaction]
				err  error
			)
			if accountID != "" {
				page, err = clients.Transactions.ListByAccount(ctx, accountID, pf.request())
			} else {
				page, err = clients.Transactions.ListAll(ctx, pf.request())
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "FROM", "TO", "AMOUNT", "STATUS", "CREATED")
			for _, tx := range page.Items {
				to := tx.DestinationAccountID
				if to == "" {
					to = tx.DestinationIBAN
				}
				t.row(tx.ID, tx.SourceAccountID, to, formatAmount(tx.Amount.Float64(), tx.Currency), tx.Status, tx.CreatedAt)
			}
			return t.flushPage(page.Page, page.TotalPages, page.Total)
		}),
	}
	pf.register(list)
	list.Flags().StringVar(&accountID, "account", "", "only transactions of this account")

	cmd.AddCommand(list)
	return cmd
}

func newWebhooksCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Inspect webhook subscriptions",
	}

	var pf pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List webhook subscriptions",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			page, err := clients.Webhooks.List(ctx, pf.request())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			t := newTable(cmd.OutOrStdout(), "ID", "URL", "ACTIVE", "EVENTS")
			for _, w := range page.Items {
				t.row(w.ID, w.URL, fmt.Sprint(w.Active), joinEvents(w.EventTypes))
			}
			return t.flushPage(page.Page, page.TotalPages, page.Total)
		}),
	}
	pf.register(list)

	eventTypes := &cobra.Command{
		Use:   "event-types",
		Short: "List subscribable event types",
		RunE: runWithClients(opts, func(ctx context.Context, cmd *cobra.Command, clients *railsr.Clients, _ []string) error {
			types, err := clients.Webhooks.EventTypes(ctx)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), types)
			}
			t := newTable(cmd.OutOrStdout(), "EVENT", "DESCRIPTION")
			for _, et := range types {
				t.row(et.Name, et.Description)
			}
			return t.flush()
		}),
	}

	cmd.AddCommand(list, eventTypes)
	return cmd
}
