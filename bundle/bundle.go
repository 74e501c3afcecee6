package bundle

import (
	"sort"
	"sync"

	"github.com/evmstate/bundle/core/types"
	"github.com/evmstate/bundle/log"
)

var bundleLog = log.Default().Module("bundle")

// Bundle is the single-writer, in-memory map of address to BundleAccount,
// plus the per-block log of reverts needed to unwind folded transitions in
// reverse order. It owns its accounts; accounts own their storage. There are
// no back-references and no sharing between bundles.
type Bundle struct {
	mu       sync.Mutex
	accounts map[types.Address]*BundleAccount

	// reverts holds one slice of per-address reverts per applied block,
	// in fold order. Unwinding a block means reverting its slice back to
	// front.
	reverts [][]blockRevert
}

// blockRevert pairs an address with the AccountRevert produced by folding
// one of its transitions within a block.
type blockRevert struct {
	Address types.Address
	Revert  *AccountRevert
}

// New returns an empty Bundle.
func New() *Bundle {
	return &Bundle{
		accounts: make(map[types.Address]*BundleAccount),
	}
}

// Get returns the BundleAccount for addr, or nil if the address has never
// been observed.
func (b *Bundle) Get(addr types.Address) *BundleAccount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[addr]
}

// Load registers addr's BundleAccount the first time it is observed, from a
// database probe. It is a caller error to Load an address more than once;
// subsequent observations must come through ApplyBlock transitions.
func (b *Bundle) Load(addr types.Address, account *PlainAccount, status AccountStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[addr]; ok {
		bundleLog.Warn("re-loading address already tracked by bundle", "address", addr.Hex())
	}
	b.accounts[addr] = NewBundleAccount(account, status)
}

// AddressTransition pairs the address a transition applies to with the
// transition itself. ApplyBlock requires transitions for the same address to
// arrive in execution order; different addresses may be interleaved in any
// order since the fold is only ordering-sensitive per address.
type AddressTransition struct {
	Address    types.Address
	Transition TransitionAccount
}

// ApplyBlock folds every transition in order into the bundle, recording one
// revert entry per non-no-op fold and appending the whole batch as a single
// unwindable block entry. It returns the number of transitions that actually
// produced a revert (i.e. were not no-ops).
//
// ApplyBlock must be called by a single logical executor at a time; it holds
// no lock across the whole batch, matching the strictly single-writer
// resource model the fold is defined under.
func (b *Bundle) ApplyBlock(transitions []AddressTransition) int {
	block := make([]blockRevert, 0, len(transitions))
	applied := 0

	for _, at := range transitions {
		account, ok := b.accounts[at.Address]
		if !ok {
			account = NewBundleAccount(nil, LoadedNotExisting)
			b.accounts[at.Address] = account
		}
		revert := account.UpdateAndCreateRevert(at.Transition)
		if revert == nil {
			continue
		}
		block = append(block, blockRevert{Address: at.Address, Revert: revert})
		applied++
	}

	b.reverts = append(b.reverts, block)
	bundleMetrics.blocksApplied.Inc()
	bundleMetrics.transitionsFolded.Add(int64(len(transitions)))
	bundleMetrics.revertsRecorded.Add(int64(applied))
	bundleMetrics.foldRate.Mark(int64(len(transitions)))
	return applied
}

// RevertLastBlock unwinds the most recently applied block's reverts, in
// reverse fold order, restoring every touched BundleAccount to its pre-block
// state. It is a no-op if no blocks have been applied.
func (b *Bundle) RevertLastBlock() {
	if len(b.reverts) == 0 {
		return
	}
	block := b.reverts[len(b.reverts)-1]
	b.reverts = b.reverts[:len(b.reverts)-1]

	for i := len(block) - 1; i >= 0; i-- {
		entry := block[i]
		account, ok := b.accounts[entry.Address]
		if !ok {
			continue
		}
		applyRevert(account, entry.Revert)
	}
	bundleMetrics.blocksReverted.Inc()
}

// applyRevert restores account to the state described by r: the account
// header per r.Account's tag, every slot per r.Storage, and status set to
// r.OriginalStatus. This is the literal undo half of the round-trip law.
func applyRevert(account *BundleAccount, r *AccountRevert) {
	switch r.Account.Kind {
	case RevertDoNothing:
		// Header unchanged; nothing to restore there.
	case RevertDeleteIt:
		account.Account = nil
	case RevertTo:
		storage := PlainStorage{}
		if account.Account != nil {
			storage = account.Account.Storage
		}
		account.Account = &PlainAccount{Info: r.Account.Info.Copy(), Storage: storage}
	}

	if len(r.Storage) > 0 {
		if account.Account == nil {
			account.Account = &PlainAccount{Info: NewAccountInfo(), Storage: PlainStorage{}}
		}
		for key, slot := range r.Storage {
			switch slot.Kind {
			case SlotRestore:
				account.Account.Storage[key] = slot.Value
			case SlotDestroyed:
				delete(account.Account.Storage, key)
			}
		}
	}

	account.Status = r.OriginalStatus
}

// AccountChangeset is the plain-state view of one address extracted at
// commit time: its final status and, if any, its final plain account value.
type AccountChangeset struct {
	Address types.Address
	Status  AccountStatus
	Account *PlainAccount // nil iff Status ∈ {LoadedNotExisting, Destroyed, DestroyedAgain}
}

// ExtractChangeset produces the committed (final status, final plain
// account) pair for every address touched since the bundle was created. The
// result is sorted by address for deterministic downstream processing.
func (b *Bundle) ExtractChangeset() []AccountChangeset {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]AccountChangeset, 0, len(b.accounts))
	for addr, acc := range b.accounts {
		out = append(out, AccountChangeset{Address: addr, Status: acc.Status, Account: acc.Account})
	}
	sort.Slice(out, func(i, j int) bool {
		return addressLess(out[i].Address, out[j].Address)
	})
	return out
}

func addressLess(a, c types.Address) bool {
	for i := range a {
		if a[i] < c[i] {
			return true
		}
		if a[i] > c[i] {
			return false
		}
	}
	return false
}

// Len returns the number of distinct addresses the bundle has observed.
func (b *Bundle) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.accounts)
}
