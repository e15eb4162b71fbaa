package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/infra"
	"dex_watch/internal/interfaces/httpapi"

	"github.com/spf13/cobra"
)

const requestTimeout = 20 * time.Second

var (
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "inspect or edit the watch-list of a running daemon",
	}

	watchListCmd = &cobra.Command{
		Use:   "list",
		Short: "print the watch-list",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			items, err := c.List(ctx)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		}),
	}

	watchAddCmd = &cobra.Command{
		Use:   "add <pair-id>",
		Short: "resolve a pair and add it",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			item, err := c.Add(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", item.Symbol, item.ID)
			return nil
		}),
	}

	watchRemoveCmd = &cobra.Command{
		Use:   "remove <pair-id>",
		Short: "remove a pair",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			return c.Remove(ctx, args[0])
		}),
	}

	watchReplaceCmd = &cobra.Command{
		Use:   "replace [pair-id...]",
		Short: "replace the whole watch-list (symbols are kept for ids already watched)",
		Args:  cobra.MaximumNArgs(domain.MaxItems + 1),
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			current, err := c.List(ctx)
			if err != nil {
				return err
			}
			next := make([]domain.Item, 0, len(args))
			for _, id := range args {
				item := domain.Item{ID: id}
				if i := domain.IndexOf(current, id); i >= 0 {
					item = current[i]
				}
				next = append(next, item)
			}
			items, err := c.Replace(ctx, next)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		}),
	}

	quotesCmd = &cobra.Command{
		Use:   "quotes",
		Short: "print the current quotes as the overlay renders them",
		Args:  cobra.NoArgs,
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			rows, err := c.Rows(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tPRICE\t24H\tSTALE")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.Symbol, r.PriceText, r.ChangeText, r.Stale)
			}
			return w.Flush()
		}),
	}

	widgetCmd = &cobra.Command{
		Use:       "widget [status|on|off]",
		Short:     "show or toggle the overlay",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"status", "on", "off"},
		RunE: withClient(func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error {
			action := "status"
			if len(args) == 1 {
				action = strings.ToLower(args[0])
			}
			switch action {
			case "on", "off":
				if err := c.SetWidget(ctx, action == "on"); err != nil {
					return err
				}
			case "status":
			default:
				return fmt.Errorf("unknown widget action %q", action)
			}
			enabled, err := c.Widget(ctx)
			if err != nil {
				return err
			}
			state := "off"
			if enabled {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "widget %s\n", state)
			return nil
		}),
	}
)

func init() {
	watchCmd.AddCommand(watchListCmd, watchAddCmd, watchRemoveCmd, watchReplaceCmd)
}

type clientFunc func(ctx context.Context, c *httpapi.Client, cmd *cobra.Command, args []string) error

// withClient resolves the daemon address and runs fn with a request timeout.
func withClient(fn clientFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		addr := addrFlag
		if addr == "" {
			cfg, err := infra.LoadConfig(configPath)
			if err != nil {
				return err
			}
			addr = cfg.Server.Addr
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx, httpapi.NewClient(addr), cmd, args)
	}
}

func printItems(w io.Writer, items []domain.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "watch-list is empty")
		return
	}
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s\t%s\n", i+1, it.Symbol, it.ID)
	}
}
