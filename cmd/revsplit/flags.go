package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/librevsplit-go/factory"
)

func parseAddress(flag, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("--%s: invalid address %q", flag, s)
	}
	return common.HexToAddress(s), nil
}

func parseAddresses(flag string, ss []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(ss))
	for _, s := range ss {
		addr, err := parseAddress(flag, strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// parseAmount accepts a decimal integer; an empty string means zero.
func parseAmount(flag, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: invalid amount %q: %w", flag, s, err)
	}
	return v, nil
}

func parsePercentages(flag string, ss []string) ([]uint64, error) {
	out := make([]uint64, 0, len(ss))
	for _, s := range ss {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--%s: invalid percentage %q: %w", flag, s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCreationID reads a 0x-prefixed 32-byte hex value. Any other
// non-empty string is hashed into an id with keccak256.
func parseCreationID(s string) ([32]byte, error) {
	var id [32]byte
	switch {
	case s == "":
		return id, nil
	case strings.HasPrefix(s, "0x"):
		b, err := hexutil.Decode(s)
		if err != nil {
			return id, fmt.Errorf("--creation-id: %w", err)
		}
		if len(b) != len(id) {
			return id, fmt.Errorf("--creation-id: want 32 bytes, got %d", len(b))
		}
		copy(id[:], b)
		return id, nil
	default:
		return crypto.Keccak256Hash([]byte(s)), nil
	}
}

// creationFlags are the instance parameters accepted by create and predict.
type creationFlags struct {
	controller   string
	distributors []string
	immutable    bool
	auto         bool
	minAuto      string
	recipients   []string
	percentages  []string
	creationID   string
}

func (c *creationFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&c.controller, "controller", "", "controller address")
	fs.StringSliceVar(&c.distributors, "distributors", nil, "comma-separated distributor addresses")
	fs.BoolVar(&c.immutable, "immutable", false, "freeze recipients at creation")
	fs.BoolVar(&c.auto, "auto", false, "enable automatic native distribution")
	fs.StringVar(&c.minAuto, "min-auto", "0", "minimum deposit that triggers automatic distribution")
	fs.StringSliceVar(&c.recipients, "recipients", nil, "comma-separated recipient addresses for index 0")
	fs.StringSliceVar(&c.percentages, "percentages", nil, "comma-separated percentages in parts per 10000000")
	fs.StringVar(&c.creationID, "creation-id", "", "32-byte hex id or label for a deterministic clone (empty for sequential)")
	_ = cmd.MarkFlagRequired("controller")
	_ = cmd.MarkFlagRequired("recipients")
	_ = cmd.MarkFlagRequired("percentages")
}

func (c *creationFlags) params() (factory.CreationParams, error) {
	var (
		p   factory.CreationParams
		err error
	)
	if p.Controller, err = parseAddress("controller", c.controller); err != nil {
		return p, err
	}
	if p.Distributors, err = parseAddresses("distributors", c.distributors); err != nil {
		return p, err
	}
	if p.MinAutoDistributionAmount, err = parseAmount("min-auto", c.minAuto); err != nil {
		return p, err
	}
	if p.Recipients, err = parseAddresses("recipients", c.recipients); err != nil {
		return p, err
	}
	if p.Percentages, err = parsePercentages("percentages", c.percentages); err != nil {
		return p, err
	}
	if p.CreationID, err = parseCreationID(c.creationID); err != nil {
		return p, err
	}
	p.IsImmutableRecipients = c.immutable
	p.IsAutoNativeDistribution = c.auto
	return p, nil
}
