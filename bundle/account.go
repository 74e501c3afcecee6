package bundle

import (
	"github.com/holiman/uint256"

	"github.com/evmstate/bundle/core/types"
)

// AccountInfo is the EVM-visible account header: nonce, balance, code and its
// hash. It intentionally excludes storage, which is tracked separately so
// that account-header changes and storage changes can be folded and reverted
// independently.
type AccountInfo struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash types.Hash
	Code     []byte
}

// NewAccountInfo returns an AccountInfo representing a freshly created,
// empty account (zero nonce and balance, no code).
func NewAccountInfo() *AccountInfo {
	return &AccountInfo{
		Balance:  new(uint256.Int),
		CodeHash: types.EmptyCodeHash,
	}
}

// Copy returns a deep copy of the account header.
func (a *AccountInfo) Copy() *AccountInfo {
	if a == nil {
		return nil
	}
	cp := &AccountInfo{
		Nonce:    a.Nonce,
		CodeHash: a.CodeHash,
	}
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	}
	if a.Code != nil {
		cp.Code = append([]byte(nil), a.Code...)
	}
	return cp
}

// IsEmpty reports whether the account is "empty" per EIP-161: zero nonce,
// zero balance and no code.
func (a *AccountInfo) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeHash == types.EmptyCodeHash
}

// equalHeader compares two account headers by nonce, balance and code hash
// only. Code bytes are deliberately excluded: the revm original this machine
// is modeled on compares AccountInfo by its (nonce, balance, code_hash)
// triple, not by code contents, since code_hash already uniquely identifies
// the code.
func equalHeader(a, b *AccountInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Nonce != b.Nonce || a.CodeHash != b.CodeHash {
		return false
	}
	switch {
	case a.Balance == nil && b.Balance == nil:
		return true
	case a.Balance == nil || b.Balance == nil:
		return false
	default:
		return a.Balance.Eq(b.Balance)
	}
}

// StorageSlot holds the original (pre-block) and present (current) value of
// a single storage slot, mirroring the Ethereum gas-refund accounting model
// where SSTORE cost depends on both the original and the current value.
type StorageSlot struct {
	OriginalValue *uint256.Int
	PresentValue  *uint256.Int
}

// NewStorageSlot builds a slot where original and present start equal.
func NewStorageSlot(value *uint256.Int) StorageSlot {
	return StorageSlot{
		OriginalValue: new(uint256.Int).Set(value),
		PresentValue:  new(uint256.Int).Set(value),
	}
}

// IsChanged reports whether the present value differs from the original.
func (s StorageSlot) IsChanged() bool {
	return !s.OriginalValue.Eq(s.PresentValue)
}

// Storage is a transition's view of storage: for every touched slot, both
// the value it had before this transition and the value it has now.
type Storage map[types.Hash]StorageSlot

// PlainStorage is storage as seen from outside a transition: slot to current
// value, with no memory of what it used to be.
type PlainStorage map[types.Hash]*uint256.Int

// PlainAccount is an account's externally-visible state: its header plus its
// storage, with no bookkeeping about how it got there.
type PlainAccount struct {
	Info    *AccountInfo
	Storage PlainStorage
}

// TransitionAccount is a single per-block change to an account: the state it
// ends up in (Info, Storage) together with the target lifecycle Status, and
// enough about the previous state to decide how the two fold together.
type TransitionAccount struct {
	// Info is the post-transition account header. Nil means the account
	// does not exist after this transition (e.g. destroyed with nothing
	// recreated).
	Info *AccountInfo

	// Status is the lifecycle tag this transition asks the account to move
	// to. The fold computes the actual resulting status, which may differ
	// from this (see the DestroyedNewChanged quirk in bundle_account.go).
	Status AccountStatus

	// Storage holds per-slot original/present values touched during this
	// transition.
	Storage Storage

	// StorageWasDestroyed marks a transition that followed a self-destruct
	// which cleared storage before it (e.g. DestroyedNew). Nothing in this
	// package sets or reads it: UpdateAndCreateRevert derives storage
	// handling from the (b.Status, t.Status) pair alone.
	StorageWasDestroyed bool
}
