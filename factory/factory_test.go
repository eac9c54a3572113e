package factory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
)

func makeAddr(seed byte) common.Address {
	var addr common.Address
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

var (
	factoryAddr = makeAddr(0xFA)
	owner       = makeAddr(0x0F)
	templAddr   = makeAddr(0x7E)
	wallet      = makeAddr(0xFE)
	caller      = makeAddr(0xC1)
	controller  = makeAddr(0x02)
	dist        = makeAddr(0x03)
	r1          = makeAddr(0xA1)
	r2          = makeAddr(0xA2)
)

func newFactory(t *testing.T) (*Factory, *ledger.MemLedger, *event.Recorder) {
	t.Helper()
	l := ledger.NewMemLedger()
	rec := event.NewRecorder()
	f, err := New(Config{
		Address:        factoryAddr,
		Owner:          owner,
		Template:       templAddr,
		PlatformFeeBps: 100_000,
		PlatformWallet: wallet,
	}, l, rec)
	require.NoError(t, err)
	return f, l, rec
}

func params(id byte) CreationParams {
	p := CreationParams{
		Controller:                controller,
		Distributors:              []common.Address{dist},
		MinAutoDistributionAmount: uint256.NewInt(0),
		Recipients:                []common.Address{r1, r2},
		Percentages:               []uint64{6_000_000, 4_000_000},
	}
	p.CreationID[31] = id
	return p
}

func TestNew_Validation(t *testing.T) {
	base := Config{Address: factoryAddr, Owner: owner, Template: templAddr}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"fee above scale", func(c *Config) { c.PlatformFeeBps = 10_000_001 }, ErrInvalidFeePercentage},
		{"zero address", func(c *Config) { c.Address = common.Address{} }, ErrZeroAddress},
		{"zero owner", func(c *Config) { c.Owner = common.Address{} }, ErrZeroAddress},
		{"zero template", func(c *Config) { c.Template = common.Address{} }, ErrZeroAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := New(cfg, ledger.NewMemLedger(), nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := base
	cfg.PlatformFeeBps = 10_000_000
	f, err := New(cfg, ledger.NewMemLedger(), nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Nonce())
	assert.False(t, f.Template().Initialized())
}

func TestCloneInitCode(t *testing.T) {
	code := CloneInitCode(templAddr)
	require.Len(t, code, 55)
	assert.Equal(t, templAddr.Bytes(), code[20:40])
	assert.Equal(t, byte(0x3d), code[0])
	assert.Equal(t, byte(0xf3), code[54])
}

func TestPredictAddress_Pure(t *testing.T) {
	f, _, rec := newFactory(t)
	p := params(1)

	a1, err := f.PredictAddress(p, caller)
	require.NoError(t, err)
	a2, err := f.PredictAddress(p, caller)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)

	assert.Empty(t, f.Instances())
	assert.Equal(t, uint64(1), f.Nonce())
	assert.Empty(t, rec.Records())

	salt, err := Salt(p, caller)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress2(factoryAddr, salt, crypto.Keccak256(CloneInitCode(templAddr))), a1)
}

func TestPredictAddress_SensitiveToEveryField(t *testing.T) {
	f, _, _ := newFactory(t)
	base, err := f.PredictAddress(params(1), caller)
	require.NoError(t, err)

	variants := map[string]func(*CreationParams) common.Address{
		"controller":   func(p *CreationParams) common.Address { p.Controller = r1; return caller },
		"distributors": func(p *CreationParams) common.Address { p.Distributors = nil; return caller },
		"immutable":    func(p *CreationParams) common.Address { p.IsImmutableRecipients = true; return caller },
		"auto":         func(p *CreationParams) common.Address { p.IsAutoNativeDistribution = true; return caller },
		"threshold":    func(p *CreationParams) common.Address { p.MinAutoDistributionAmount = uint256.NewInt(1); return caller },
		"recipients":   func(p *CreationParams) common.Address { p.Recipients = []common.Address{r2, r1}; return caller },
		"percentages":  func(p *CreationParams) common.Address { p.Percentages = []uint64{5_000_000, 5_000_000}; return caller },
		"creation id":  func(p *CreationParams) common.Address { p.CreationID[0] = 9; return caller },
		"deployer":     func(p *CreationParams) common.Address { return r2 },
	}
	for name, mutate := range variants {
		t.Run(name, func(t *testing.T) {
			p := params(1)
			deployer := mutate(&p)
			got, err := f.PredictAddress(p, deployer)
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestCreateInstance_Deterministic(t *testing.T) {
	f, _, rec := newFactory(t)
	p := params(1)

	predicted, err := f.PredictAddress(p, caller)
	require.NoError(t, err)

	addr, err := f.CreateInstance(caller, p)
	require.NoError(t, err)
	assert.Equal(t, predicted, addr)
	assert.Equal(t, uint64(2), f.Nonce(), "deterministic creation consumes a nonce")

	inst, err := f.Instance(addr)
	require.NoError(t, err)
	assert.Equal(t, caller, inst.Owner())
	assert.Equal(t, controller, inst.Controller())
	assert.True(t, inst.IsDistributor(dist))
	assert.Equal(t, uint64(100_000), inst.PlatformFee())
	assert.Equal(t, factoryAddr, inst.Factory())
	assert.Equal(t, 2, inst.NumberOfRecipients(0))

	recs := rec.Records()
	require.NotEmpty(t, recs)
	last := recs[len(recs)-1]
	assert.Equal(t, factoryAddr, last.Source)
	created, ok := last.Event.(event.InstanceCreated)
	require.True(t, ok)
	assert.Equal(t, addr, created.Instance)
	assert.Equal(t, Version, created.Version)
	assert.Equal(t, p.CreationID, created.CreationID)
	assert.Equal(t, []common.Address{dist}, created.Distributors)

	// Same params and caller collide.
	_, err = f.CreateInstance(caller, p)
	assert.ErrorIs(t, err, ErrCloneCollision)
	assert.Len(t, f.Instances(), 1)
	assert.Equal(t, uint64(2), f.Nonce(), "a collision consumes nothing")

	// A different caller gets a different address.
	other, err := f.CreateInstance(r1, p)
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)
	assert.Equal(t, uint64(3), f.Nonce())
}

func TestCreateInstance_SequentialAfterDeterministic(t *testing.T) {
	f, _, _ := newFactory(t)

	_, err := f.CreateInstance(caller, params(1))
	require.NoError(t, err)
	seq, err := f.CreateInstance(caller, params(0))
	require.NoError(t, err)

	assert.Equal(t, crypto.CreateAddress(factoryAddr, 2), seq)
	assert.Equal(t, uint64(3), f.Nonce())
}

func TestCreateInstance_Sequential(t *testing.T) {
	f, _, _ := newFactory(t)
	p := params(0)

	a1, err := f.CreateInstance(caller, p)
	require.NoError(t, err)
	a2, err := f.CreateInstance(caller, p)
	require.NoError(t, err)

	assert.Equal(t, crypto.CreateAddress(factoryAddr, 1), a1)
	assert.Equal(t, crypto.CreateAddress(factoryAddr, 2), a2)
	assert.Equal(t, uint64(3), f.Nonce())
	assert.Equal(t, []common.Address{a1, a2}, f.Instances())
}

func TestCreateInstance_InitializerFailureLeavesFactoryUntouched(t *testing.T) {
	f, _, rec := newFactory(t)

	bad := params(0)
	bad.Percentages = []uint64{6_000_000, 3_999_999}
	_, err := f.CreateInstance(caller, bad)
	assert.ErrorIs(t, err, distributor.ErrInvalidPercentage)

	bad = params(2)
	bad.Recipients = []common.Address{r1, {}}
	_, err = f.CreateInstance(caller, bad)
	assert.ErrorIs(t, err, distributor.ErrNullRecipient)

	_, err = f.CreateInstance(common.Address{}, params(3))
	assert.ErrorIs(t, err, distributor.ErrZeroOwner)

	assert.Empty(t, f.Instances())
	assert.Equal(t, uint64(1), f.Nonce())
	assert.Empty(t, rec.Records())
}

func TestSetPlatformFee(t *testing.T) {
	f, _, rec := newFactory(t)

	err := f.SetPlatformFee(caller, 1)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, f.SetPlatformFee(owner, 10_000_001), ErrInvalidFeePercentage)
	assert.Equal(t, uint64(100_000), f.PlatformFee())

	before, err := f.CreateInstance(caller, params(0))
	require.NoError(t, err)

	require.NoError(t, f.SetPlatformFee(owner, 500_000))
	assert.Equal(t, uint64(500_000), f.PlatformFee())

	after, err := f.CreateInstance(caller, params(0))
	require.NoError(t, err)

	instBefore, err := f.Instance(before)
	require.NoError(t, err)
	instAfter, err := f.Instance(after)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), instBefore.PlatformFee(), "existing instances keep their snapshot")
	assert.Equal(t, uint64(500_000), instAfter.PlatformFee())

	var changed *event.PlatformFeeChanged
	for _, r := range rec.Records() {
		if ev, ok := r.Event.(event.PlatformFeeChanged); ok {
			changed = &ev
		}
	}
	require.NotNil(t, changed)
	assert.Equal(t, uint64(100_000), changed.Old)
	assert.Equal(t, uint64(500_000), changed.New)
}

func TestSetPlatformWallet_LiveLookup(t *testing.T) {
	f, l, _ := newFactory(t)
	addr, err := f.CreateInstance(caller, params(0))
	require.NoError(t, err)
	inst, err := f.Instance(addr)
	require.NoError(t, err)

	require.NoError(t, l.Mint(addr, uint256.NewInt(2_000_000_000)))
	require.NoError(t, inst.RedistributeNativeCurrency(dist, uint256.NewInt(1_000_000_000), 0))
	assert.Equal(t, uint64(10_000_000), l.Balance(wallet).Uint64())

	assert.ErrorIs(t, f.SetPlatformWallet(caller, r1), ErrNotOwner)

	next := makeAddr(0xFD)
	require.NoError(t, f.SetPlatformWallet(owner, next))
	assert.Equal(t, next, f.PlatformWallet())

	require.NoError(t, inst.RedistributeNativeCurrency(dist, uint256.NewInt(1_000_000_000), 0))
	assert.Equal(t, uint64(10_000_000), l.Balance(next).Uint64())
	assert.Equal(t, uint64(10_000_000), l.Balance(wallet).Uint64())
}

func TestTransferOwnership(t *testing.T) {
	f, _, _ := newFactory(t)
	assert.ErrorIs(t, f.TransferOwnership(caller, caller), ErrNotOwner)
	assert.ErrorIs(t, f.TransferOwnership(owner, common.Address{}), ErrZeroAddress)

	require.NoError(t, f.TransferOwnership(owner, caller))
	assert.Equal(t, caller, f.Owner())
	require.NoError(t, f.SetPlatformFee(caller, 0))
}

func TestInstance_NotFound(t *testing.T) {
	f, _, _ := newFactory(t)
	_, err := f.Instance(r1)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestExportRestore(t *testing.T) {
	f, l, _ := newFactory(t)
	seq, err := f.CreateInstance(caller, params(0))
	require.NoError(t, err)
	det, err := f.CreateInstance(caller, params(5))
	require.NoError(t, err)
	require.NoError(t, f.SetPlatformWallet(owner, r2))

	st, err := f.Export()
	require.NoError(t, err)
	require.Len(t, st.Instances, 2)

	restored, err := Restore(st, l, nil)
	require.NoError(t, err)
	assert.Equal(t, f.Instances(), restored.Instances())
	assert.Equal(t, f.Nonce(), restored.Nonce())
	assert.Equal(t, r2, restored.PlatformWallet())

	// Restored factory keeps colliding on existing addresses.
	_, err = restored.CreateInstance(caller, params(5))
	assert.ErrorIs(t, err, ErrCloneCollision)
	next, err := restored.CreateInstance(caller, params(0))
	require.NoError(t, err)
	assert.NotEqual(t, seq, next)

	// Restored instances consult the restored factory's wallet.
	inst, err := restored.Instance(det)
	require.NoError(t, err)
	require.NoError(t, l.Mint(det, uint256.NewInt(1_000_000_000)))
	require.NoError(t, restored.SetPlatformWallet(owner, wallet))
	require.NoError(t, inst.RedistributeNativeCurrency(dist, uint256.NewInt(1_000_000_000), 0))
	assert.Equal(t, uint64(10_000_000), l.Balance(wallet).Uint64())
}
