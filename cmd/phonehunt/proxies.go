package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"phonehunt/internal/config"
	"phonehunt/internal/logging"
	"phonehunt/internal/proxy"
)

// NewProxiesCmd creates the proxies command group.
func NewProxiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxies",
		Short: "Maintain the local proxy pool",
		Long: `Proxies manages the plain-text pool the batch runner falls back to
when no rotating gateway is configured. Fetch pulls fresh candidates
from public lists, check probes every entry and drops the dead ones.`,
	}

	cmd.AddCommand(newProxiesFetchCmd())
	cmd.AddCommand(newProxiesCheckCmd())
	cmd.AddCommand(newProxiesListCmd())
	return cmd
}

func openPool(cfg *config.Config) *proxy.Pool {
	return proxy.NewPool(cfg.PoolFile, cfg.UsageFile, cfg.ProxyProbeURL, 15*time.Second, logging.WithComponent("pool"))
}

func newProxiesFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Pull proxy candidates from public sources into the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logging.WithComponent("fetch")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fetchers := []proxy.Fetcher{
				&proxy.GeonodeFetcher{},
				&proxy.ProxyScrapeFetcher{},
				proxy.NewFreeProxyListFetcher(),
			}
			if len(cfg.PoolSourceURLs) > 0 {
				fetchers = append(fetchers, &proxy.TextListFetcher{URLs: cfg.PoolSourceURLs})
			}

			lines := proxy.FetchAll(ctx, log, fetchers...)
			pool := openPool(cfg)
			added := pool.Add(lines)
			if err := pool.Save(); err != nil {
				return fmt.Errorf("save pool: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d candidates, %d new; pool now holds %d entries.\n",
				len(lines), added, pool.Size())
			return nil
		},
	}
}

func newProxiesCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every pool entry and remove the dead ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			keep, _ := cmd.Flags().GetBool("keep-dead")
			limit, _ := cmd.Flags().GetInt("concurrency")

			pool := openPool(cfg)
			entries := pool.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Pool is empty; run `phonehunt proxies fetch` first.")
				return nil
			}

			checker := &proxy.Checker{
				ProbeURL:   cfg.ProxyProbeURL,
				TargetAddr: cfg.SearchHost() + ":443",
				Timeout:    15 * time.Second,
				Limit:      limit,
				Log:        logging.WithComponent("check"),
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := checker.Check(ctx, entries)
			alive, dead := 0, 0
			for _, res := range results {
				if res.OK {
					alive++
					fmt.Fprintf(cmd.OutOrStdout(), "OK   %-40s %s\n", res.Upstream.Server, res.Latency.Round(time.Millisecond))
					continue
				}
				dead++
				fmt.Fprintf(cmd.OutOrStdout(), "DEAD %-40s %v\n", res.Upstream.Server, res.Err)
				if !keep {
					// MarkFailed persists the shrunken pool as it goes.
					pool.MarkFailed(res.Upstream.Server)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d alive, %d dead out of %d checked.\n", alive, dead, len(entries))
			return nil
		},
	}

	cmd.Flags().Bool("keep-dead", false, "Report dead entries without removing them")
	cmd.Flags().Int("concurrency", 10, "Number of simultaneous probes")
	return cmd
}

func newProxiesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the pool entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool := openPool(cfg)
			for _, up := range pool.Entries() {
				fmt.Fprintln(cmd.OutOrStdout(), up.String())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries in %s\n", pool.Size(), cfg.PoolFile)
			return nil
		},
	}
}
