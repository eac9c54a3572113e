package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/config"
	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/factory"
	"github.com/bitfsorg/librevsplit-go/logger"
	"github.com/bitfsorg/librevsplit-go/metrics"
)

func newShowCmd(rf *rootFlags) *cobra.Command {
	var instance string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the factory, or one instance with --instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rf.withSession(func(s *session) error {
				f, err := s.requireFactory()
				if err != nil {
					return err
				}
				if instance == "" {
					printFactory(cmd.OutOrStdout(), f)
					return nil
				}
				addr, err := parseAddress("instance", instance)
				if err != nil {
					return err
				}
				inst, err := f.Instance(addr)
				if err != nil {
					return err
				}
				printInstance(cmd.OutOrStdout(), inst)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "instance address")
	return cmd
}

func printFactory(w io.Writer, f *factory.Factory) {
	fmt.Fprintf(w, "factory      %s\n", f.Address().Hex())
	fmt.Fprintf(w, "owner        %s\n", f.Owner().Hex())
	fmt.Fprintf(w, "template     %s\n", f.TemplateAddress().Hex())
	fmt.Fprintf(w, "platform fee %d\n", f.PlatformFee())
	fmt.Fprintf(w, "wallet       %s\n", f.PlatformWallet().Hex())
	fmt.Fprintf(w, "nonce        %d\n", f.Nonce())
	for _, addr := range f.Instances() {
		fmt.Fprintf(w, "instance     %s\n", addr.Hex())
	}
}

func printInstance(w io.Writer, inst *distributor.Instance) {
	fmt.Fprintf(w, "instance     %s\n", inst.Address().Hex())
	fmt.Fprintf(w, "owner        %s\n", inst.Owner().Hex())
	fmt.Fprintf(w, "controller   %s\n", inst.Controller().Hex())
	fmt.Fprintf(w, "distributors %s\n", joinAddresses(inst.Distributors()))
	fmt.Fprintf(w, "immutable    %t\n", inst.IsImmutableRecipients())
	fmt.Fprintf(w, "auto         %t (min %s)\n", inst.IsAutoNativeDistribution(), inst.MinAutoDistributionAmount().Dec())
	fmt.Fprintf(w, "platform fee %d\n", inst.PlatformFee())
	fmt.Fprintf(w, "balance      %s\n", inst.Balance().Dec())
	for _, index := range inst.Indexes() {
		fmt.Fprintf(w, "index %d\n", index)
		for _, r := range inst.Recipients(index) {
			fmt.Fprintf(w, "  %s %d\n", r.Address.Hex(), r.Percentage)
		}
	}
}

func joinAddresses(addrs []common.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.Hex()
	}
	return strings.Join(parts, ",")
}

func newBalanceCmd(rf *rootFlags) *cobra.Command {
	var address, token string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the native or token balance of an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := parseAddress("address", address)
			if err != nil {
				return err
			}
			return rf.withSession(func(s *session) error {
				bal := s.ledger.Balance(addr)
				if token != "" {
					tok, err := parseAddress("token", token)
					if err != nil {
						return err
					}
					if bal, err = s.ledger.TokenBalance(tok, addr); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), bal.Dec())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "address to query")
	cmd.Flags().StringVar(&token, "token", "", "token address (empty for native currency)")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func newEventsCmd(rf *rootFlags) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the persisted event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			return rf.withSession(func(s *session) error {
				if verify {
					if err := s.store.VerifyEvents(); err != nil {
						return err
					}
				}
				entries, err := s.store.Events()
				if err != nil {
					return err
				}
				for _, e := range entries {
					rec, err := e.Record()
					if err != nil {
						return fmt.Errorf("event %d: %w", e.Seq, err)
					}
					fmt.Fprintf(w, "%d %s %s %+v\n", e.Seq, rec.Source.Hex(), rec.Event.Name(), rec.Event)
				}
				if verify {
					fmt.Fprintf(w, "verified %d events\n", len(entries))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check the hash chain before printing")
	return cmd
}

func newServeMetricsCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rf.cfg.MetricsAddr == "" {
				return errors.New("metrics_addr is not configured")
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			srv := &http.Server{
				Addr:              rf.cfg.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.Info("serving metrics", zap.String("addr", rf.cfg.MetricsAddr))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}

func newConfigCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", rf.cfg)
			return nil
		},
	}, &cobra.Command{
		Use:   "write",
		Short: "Write the effective configuration to <datadir>/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := rf.configPath
			if path == "" {
				path = config.ConfigPath(rf.cfg.DataDir)
			}
			if err := config.SaveConfig(path, rf.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return cmd
}
