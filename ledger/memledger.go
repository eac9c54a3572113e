package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemLedger is an in-memory Ledger. Besides balances it can mark addresses
// that refuse native value and pause tokens, which is how downstream transfer
// failures are produced.
type MemLedger struct {
	mu        sync.Mutex
	native    map[common.Address]*uint256.Int
	tokens    map[common.Address]map[common.Address]*uint256.Int
	paused    map[common.Address]bool
	rejecting map[common.Address]bool
}

// Compile-time interface check.
var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		native:    make(map[common.Address]*uint256.Int),
		tokens:    make(map[common.Address]map[common.Address]*uint256.Int),
		paused:    make(map[common.Address]bool),
		rejecting: make(map[common.Address]bool),
	}
}

// Balance returns the native balance of addr.
func (l *MemLedger) Balance(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceOf(addr)
}

// TokenBalance returns holder's balance of token.
func (l *MemLedger) TokenBalance(token, holder common.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokenBalanceOf(token, holder)
}

// Transfer moves native value as a single atomic unit.
func (l *MemLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	return l.Atomic(func(st State) error {
		return st.Transfer(from, to, amount)
	})
}

// TransferToken moves token units as a single atomic unit.
func (l *MemLedger) TransferToken(token, from, to common.Address, amount *uint256.Int) error {
	return l.Atomic(func(st State) error {
		return st.TransferToken(token, from, to, amount)
	})
}

// Atomic runs fn under the ledger lock and reverts its writes on error.
func (l *MemLedger) Atomic(fn func(State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := &txState{l: l}
	if err := fn(st); err != nil {
		st.revert()
		return err
	}
	return nil
}

// Mint credits native value to addr out of thin air.
func (l *MemLedger) Mint(addr common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, overflow := new(uint256.Int).AddOverflow(l.balanceOf(addr), amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, addr.Hex())
	}
	l.native[addr] = bal
	return nil
}

// RegisterToken makes token known to the ledger. Registering twice is a no-op.
func (l *MemLedger) RegisterToken(token common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tokens[token]; !ok {
		l.tokens[token] = make(map[common.Address]*uint256.Int)
	}
}

// MintToken credits token units to holder. The token must be registered.
func (l *MemLedger) MintToken(token, holder common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	balances, ok := l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	cur := new(uint256.Int)
	if b, ok := balances[holder]; ok {
		cur.Set(b)
	}
	bal, overflow := cur.AddOverflow(cur, amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, holder.Hex())
	}
	balances[holder] = bal
	return nil
}

// SetRejecting marks addr as refusing (or accepting) native value.
func (l *MemLedger) SetRejecting(addr common.Address, rejecting bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rejecting {
		l.rejecting[addr] = true
	} else {
		delete(l.rejecting, addr)
	}
}

// PauseToken makes every transfer of token fail until unpaused.
func (l *MemLedger) PauseToken(token common.Address, paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if paused {
		l.paused[token] = true
	} else {
		delete(l.paused, token)
	}
}

func (l *MemLedger) balanceOf(addr common.Address) *uint256.Int {
	if b, ok := l.native[addr]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

func (l *MemLedger) tokenBalanceOf(token, holder common.Address) (*uint256.Int, error) {
	balances, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	if b, ok := balances[holder]; ok {
		return b.Clone(), nil
	}
	return new(uint256.Int), nil
}

// ---------------------------------------------------------------------------
// Journaled state handed to Atomic callbacks.
// ---------------------------------------------------------------------------

// journalEntry records a balance before it was overwritten.
type journalEntry struct {
	isToken bool
	token   common.Address
	holder  common.Address
	prev    *uint256.Int // nil when no entry existed
}

type txState struct {
	l       *MemLedger
	journal []journalEntry
}

func (s *txState) Balance(addr common.Address) *uint256.Int {
	return s.l.balanceOf(addr)
}

func (s *txState) TokenBalance(token, holder common.Address) (*uint256.Int, error) {
	return s.l.tokenBalanceOf(token, holder)
}

func (s *txState) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	if s.l.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to.Hex())
	}
	fromBal := s.l.balanceOf(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toBal, overflow := new(uint256.Int).AddOverflow(s.l.balanceOf(to), amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to.Hex())
	}
	s.setNative(from, fromBal.Sub(fromBal, amount))
	s.setNative(to, toBal)
	return nil
}

func (s *txState) TransferToken(token, from, to common.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrNilAmount
	}
	balances, ok := s.l.tokens[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	if s.l.paused[token] {
		return fmt.Errorf("%w: %s", ErrTokenPaused, token.Hex())
	}
	fromBal := new(uint256.Int)
	if b, ok := balances[from]; ok {
		fromBal.Set(b)
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s",
			ErrInsufficientBalance, from.Hex(), fromBal.Dec(), token.Hex(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toBal := new(uint256.Int)
	if b, ok := balances[to]; ok {
		toBal.Set(b)
	}
	if _, overflow := toBal.AddOverflow(toBal, amount); overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, to.Hex())
	}
	s.setToken(token, from, fromBal.Sub(fromBal, amount))
	s.setToken(token, to, toBal)
	return nil
}

func (s *txState) setNative(addr common.Address, bal *uint256.Int) {
	entry := journalEntry{holder: addr}
	if prev, ok := s.l.native[addr]; ok {
		entry.prev = prev
	}
	s.journal = append(s.journal, entry)
	s.l.native[addr] = bal
}

func (s *txState) setToken(token, holder common.Address, bal *uint256.Int) {
	balances := s.l.tokens[token]
	entry := journalEntry{isToken: true, token: token, holder: holder}
	if prev, ok := balances[holder]; ok {
		entry.prev = prev
	}
	s.journal = append(s.journal, entry)
	balances[holder] = bal
}

// revert undoes journaled writes newest first.
func (s *txState) revert() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		e := s.journal[i]
		if e.isToken {
			balances := s.l.tokens[e.token]
			if e.prev == nil {
				delete(balances, e.holder)
			} else {
				balances[e.holder] = e.prev
			}
			continue
		}
		if e.prev == nil {
			delete(s.l.native, e.holder)
		} else {
			s.l.native[e.holder] = e.prev
		}
	}
	s.journal = nil
}

// ---------------------------------------------------------------------------
// Snapshot export / import for persistence.
// ---------------------------------------------------------------------------

// Snapshot is a gob-friendly copy of a MemLedger. Balances are stored as
// 32-byte big-endian words.
type Snapshot struct {
	Native    map[common.Address][32]byte
	Tokens    map[common.Address]map[common.Address][32]byte
	Paused    []common.Address
	Rejecting []common.Address
}

// Export returns a snapshot of the ledger.
func (l *MemLedger) Export() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &Snapshot{
		Native: make(map[common.Address][32]byte, len(l.native)),
		Tokens: make(map[common.Address]map[common.Address][32]byte, len(l.tokens)),
	}
	for addr, bal := range l.native {
		snap.Native[addr] = bal.Bytes32()
	}
	for token, balances := range l.tokens {
		m := make(map[common.Address][32]byte, len(balances))
		for holder, bal := range balances {
			m[holder] = bal.Bytes32()
		}
		snap.Tokens[token] = m
	}
	for addr := range l.paused {
		snap.Paused = append(snap.Paused, addr)
	}
	for addr := range l.rejecting {
		snap.Rejecting = append(snap.Rejecting, addr)
	}
	sortAddresses(snap.Paused)
	sortAddresses(snap.Rejecting)
	return snap
}

// FromSnapshot rebuilds a MemLedger from a snapshot.
func FromSnapshot(snap *Snapshot) *MemLedger {
	l := NewMemLedger()
	if snap == nil {
		return l
	}
	for addr, word := range snap.Native {
		w := word
		l.native[addr] = new(uint256.Int).SetBytes32(w[:])
	}
	for token, balances := range snap.Tokens {
		m := make(map[common.Address]*uint256.Int, len(balances))
		for holder, word := range balances {
			w := word
			m[holder] = new(uint256.Int).SetBytes32(w[:])
		}
		l.tokens[token] = m
	}
	for _, addr := range snap.Paused {
		l.paused[addr] = true
	}
	for _, addr := range snap.Rejecting {
		l.rejecting[addr] = true
	}
	return l
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
