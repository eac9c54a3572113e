package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/librevsplit-go/factory"
)

func newInitCmd(rf *rootFlags) *cobra.Command {
	var address, owner, template, wallet string
	var fee uint64
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Deploy the factory described by the config file and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc := rf.cfg.Factory
			flags := cmd.Flags()
			if flags.Changed("address") {
				fc.Address = address
			}
			if flags.Changed("owner") {
				fc.Owner = owner
			}
			if flags.Changed("template") {
				fc.Template = template
			}
			if flags.Changed("wallet") {
				fc.PlatformWallet = wallet
			}
			if flags.Changed("fee") {
				fc.PlatformFeeBps = fee
			}
			params, err := fc.FactoryParams()
			if err != nil {
				return err
			}

			return rf.withSession(func(s *session) error {
				if s.factory != nil {
					return fmt.Errorf("%w at %s", errFactoryDeployed, s.factory.Address().Hex())
				}
				f, err := factory.New(params, s.ledger, s.events)
				if err != nil {
					return err
				}
				s.factory = f
				fmt.Fprintln(cmd.OutOrStdout(), f.Address().Hex())
				return nil
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&address, "address", "", "factory address")
	fs.StringVar(&owner, "owner", "", "factory owner")
	fs.StringVar(&template, "template", "", "template instance address")
	fs.StringVar(&wallet, "wallet", "", "platform wallet (empty disables fee collection)")
	fs.Uint64Var(&fee, "fee", 0, "platform fee in parts per 10000000")
	return cmd
}

func newPredictCmd(rf *rootFlags) *cobra.Command {
	var cf creationFlags
	var deployer string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Print the address a deterministic clone would occupy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := cf.params()
			if err != nil {
				return err
			}
			if !params.Deterministic() {
				return fmt.Errorf("--creation-id is required for prediction")
			}
			from, err := parseAddress("deployer", deployer)
			if err != nil {
				return err
			}
			return rf.withSession(func(s *session) error {
				f, err := s.requireFactory()
				if err != nil {
					return err
				}
				addr, err := f.PredictAddress(params, from)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
				return nil
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&deployer, "deployer", "", "address that will call create")
	_ = cmd.MarkFlagRequired("deployer")
	return cmd
}

func newCreateCmd(rf *rootFlags) *cobra.Command {
	var cf creationFlags
	var caller string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and initialize a distributor instance owned by the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := cf.params()
			if err != nil {
				return err
			}
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			return rf.withSession(func(s *session) error {
				f, err := s.requireFactory()
				if err != nil {
					return err
				}
				addr, err := f.CreateInstance(from, params)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
				return nil
			})
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&caller, "caller", "", "deployer and owner of the new instance")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func newSetFeeCmd(rf *rootFlags) *cobra.Command {
	var caller string
	var fee uint64
	cmd := &cobra.Command{
		Use:   "set-fee",
		Short: "Change the platform fee applied to future instances",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			return rf.withSession(func(s *session) error {
				f, err := s.requireFactory()
				if err != nil {
					return err
				}
				return f.SetPlatformFee(from, fee)
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "factory owner")
	cmd.Flags().Uint64Var(&fee, "fee", 0, "platform fee in parts per 10000000")
	_ = cmd.MarkFlagRequired("caller")
	_ = cmd.MarkFlagRequired("fee")
	return cmd
}

func newSetWalletCmd(rf *rootFlags) *cobra.Command {
	var caller, wallet string
	cmd := &cobra.Command{
		Use:   "set-wallet",
		Short: "Change the platform wallet used by every instance",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			from, err := parseAddress("caller", caller)
			if err != nil {
				return err
			}
			var to common.Address
			if wallet != "" {
				if to, err = parseAddress("wallet", wallet); err != nil {
					return err
				}
			}
			return rf.withSession(func(s *session) error {
				f, err := s.requireFactory()
				if err != nil {
					return err
				}
				return f.SetPlatformWallet(from, to)
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "factory owner")
	cmd.Flags().StringVar(&wallet, "wallet", "", "new platform wallet (empty disables fee collection)")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}
