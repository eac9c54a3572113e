package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/librevsplit-go/distributor"
)

// instanceFlags select an instance and the address acting on it.
type instanceFlags struct {
	instance string
	caller   string
}

func (f *instanceFlags) register(cmd *cobra.Command, callerUsage string) {
	cmd.Flags().StringVar(&f.instance, "instance", "", "instance address")
	cmd.Flags().StringVar(&f.caller, "caller", "", callerUsage)
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("caller")
}

func (f *instanceFlags) parse() (inst, caller common.Address, err error) {
	if inst, err = parseAddress("instance", f.instance); err != nil {
		return
	}
	caller, err = parseAddress("caller", f.caller)
	return
}

// onInstance parses the instance flags and runs fn inside a session.
func (rf *rootFlags) onInstance(f *instanceFlags, fn func(s *session, inst *distributor.Instance, caller common.Address) error) error {
	addr, caller, err := f.parse()
	if err != nil {
		return err
	}
	return rf.withSession(func(s *session) error {
		inst, err := s.instance(addr)
		if err != nil {
			return err
		}
		return fn(s, inst, caller)
	})
}

func newFundCmd(rf *rootFlags) *cobra.Command {
	var to, amount, token string
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit native currency or token units to an address",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			addr, err := parseAddress("to", to)
			if err != nil {
				return err
			}
			value, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			return rf.withSession(func(s *session) error {
				if token == "" {
					return s.ledger.Mint(addr, value)
				}
				tok, err := parseAddress("token", token)
				if err != nil {
					return err
				}
				s.ledger.RegisterToken(tok)
				return s.ledger.MintToken(tok, addr, value)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "address to credit")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in base units")
	cmd.Flags().StringVar(&token, "token", "", "token address (empty for native currency)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSetRecipientsCmd(rf *rootFlags) *cobra.Command {
	var (
		f           instanceFlags
		recipients  []string
		percentages []string
		index       uint64
		freeze      bool
	)
	cmd := &cobra.Command{
		Use:   "set-recipients",
		Short: "Replace the recipient table at an index",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			addrs, err := parseAddresses("recipients", recipients)
			if err != nil {
				return err
			}
			pcts, err := parsePercentages("percentages", percentages)
			if err != nil {
				return err
			}
			return rf.onInstance(&f, func(_ *session, inst *distributor.Instance, caller common.Address) error {
				if freeze {
					return inst.SetRecipientsAndFreeze(caller, addrs, pcts, index)
				}
				return inst.SetRecipients(caller, addrs, pcts, index)
			})
		},
	}
	f.register(cmd, "controller of the instance")
	fs := cmd.Flags()
	fs.StringSliceVar(&recipients, "recipients", nil, "comma-separated recipient addresses")
	fs.StringSliceVar(&percentages, "percentages", nil, "comma-separated percentages in parts per 10000000")
	fs.Uint64Var(&index, "index", 0, "recipient table index")
	fs.BoolVar(&freeze, "freeze", false, "make recipients immutable after this update")
	_ = cmd.MarkFlagRequired("recipients")
	_ = cmd.MarkFlagRequired("percentages")
	return cmd
}

func newDistributeCmd(rf *rootFlags) *cobra.Command {
	var (
		f      instanceFlags
		amount string
		token  string
		index  uint64
	)
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Split part of an instance balance across a recipient table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			value, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			return rf.onInstance(&f, func(_ *session, inst *distributor.Instance, caller common.Address) error {
				if token == "" {
					return inst.RedistributeNativeCurrency(caller, value, index)
				}
				tok, err := parseAddress("token", token)
				if err != nil {
					return err
				}
				return inst.RedistributeToken(caller, tok, value, index)
			})
		},
	}
	f.register(cmd, "distributor of the instance")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to distribute in base units")
	cmd.Flags().StringVar(&token, "token", "", "token address (empty for native currency)")
	cmd.Flags().Uint64Var(&index, "index", 0, "recipient table index")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newDepositCmd(rf *rootFlags) *cobra.Command {
	var (
		instance, from string
		value, amount  string
		index          uint64
	)
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Send native currency to an instance, optionally with distribution metadata",
		Long: `Send native currency to an instance.

Without --index the deposit is a plain transfer. With --index the call carries
an encoded (index, amount) payload and may trigger an automatic distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := parseAddress("instance", instance)
			if err != nil {
				return err
			}
			sender, err := parseAddress("from", from)
			if err != nil {
				return err
			}
			v, err := parseAmount("value", value)
			if err != nil {
				return err
			}
			var data []byte
			if cmd.Flags().Changed("index") {
				if amount == "" {
					amount = value
				}
				amt, err := parseAmount("amount", amount)
				if err != nil {
					return err
				}
				if data, err = distributor.EncodePayload(index, amt); err != nil {
					return err
				}
			}
			return rf.withSession(func(s *session) error {
				inst, err := s.instance(addr)
				if err != nil {
					return err
				}
				return inst.Fallback(sender, v, data)
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&instance, "instance", "", "instance address")
	fs.StringVar(&from, "from", "", "sender address")
	fs.StringVar(&value, "value", "", "value sent in base units")
	fs.Uint64Var(&index, "index", 0, "recipient table index for the metadata payload")
	fs.StringVar(&amount, "amount", "", "amount to distribute for the metadata payload (default: value)")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newSetDistributorCmd(rf *rootFlags) *cobra.Command {
	var (
		f       instanceFlags
		account string
		enabled bool
	)
	cmd := &cobra.Command{
		Use:   "set-distributor",
		Short: "Grant or revoke the distributor role",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			addr, err := parseAddress("account", account)
			if err != nil {
				return err
			}
			return rf.onInstance(&f, func(_ *session, inst *distributor.Instance, caller common.Address) error {
				return inst.SetDistributor(caller, addr, enabled)
			})
		},
	}
	f.register(cmd, "owner of the instance")
	cmd.Flags().StringVar(&account, "account", "", "address to update")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "grant (true) or revoke (false) the role")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newSetAutoCmd(rf *rootFlags) *cobra.Command {
	var (
		f       instanceFlags
		enabled   bool
		minAmount string
	)
	cmd := &cobra.Command{
		Use:   "set-auto",
		Short: "Configure automatic native distribution on metadata deposits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			threshold, err := parseAmount("min", minAmount)
			if err != nil {
				return err
			}
			return rf.onInstance(&f, func(_ *session, inst *distributor.Instance, caller common.Address) error {
				if cmd.Flags().Changed("enabled") {
					if err := inst.SetAutoNativeCurrencyDistribution(caller, enabled); err != nil {
						return err
					}
				}
				if cmd.Flags().Changed("min") {
					if err := inst.SetMinAutoDistributionAmount(caller, threshold); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "auto=%t min=%s\n",
					inst.IsAutoNativeDistribution(), inst.MinAutoDistributionAmount().Dec())
				return nil
			})
		},
	}
	f.register(cmd, "owner of the instance")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "enable automatic distribution")
	cmd.Flags().StringVar(&minAmount, "min", "", "minimum triggering deposit in base units")
	return cmd
}
