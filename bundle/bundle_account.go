package bundle

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/evmstate/bundle/core/types"
)

// BundleAccount is the accumulated, per-address state of the bundle: the
// account's current plain value (or none) together with the lifecycle
// status that explains how it got there.
type BundleAccount struct {
	Account *PlainAccount
	Status  AccountStatus
}

// NewBundleAccount constructs a BundleAccount in a given starting status,
// typically produced by a database probe (Loaded, LoadedEmptyEIP161 or
// LoadedNotExisting).
func NewBundleAccount(account *PlainAccount, status AccountStatus) *BundleAccount {
	return &BundleAccount{Account: account, Status: status}
}

// accountOrDefault returns b.Account, or a fresh empty PlainAccount if the
// bundle account currently holds none. Used where the fold needs to read and
// drain "the current account" regardless of whether one is actually present.
func accountOrDefault(b *BundleAccount) *PlainAccount {
	if b.Account != nil {
		return b.Account
	}
	return &PlainAccount{Info: NewAccountInfo(), Storage: PlainStorage{}}
}

// newPresentStorage projects a transition's Storage down to slot->present
// value, the form used to extend a BundleAccount's plain storage.
func newPresentStorage(s Storage) PlainStorage {
	out := make(PlainStorage, len(s))
	for k, slot := range s {
		out[k] = new(uint256.Int).Set(slot.PresentValue)
	}
	return out
}

// previousStorageFromUpdate computes the per-slot undo for ordinary
// mutations: for every slot whose original and present value differ, the
// revert restores the original value. Slots that did not actually change are
// omitted.
func previousStorageFromUpdate(s Storage) map[types.Hash]RevertToSlot {
	out := make(map[types.Hash]RevertToSlot)
	for k, slot := range s {
		if !slot.OriginalValue.Eq(slot.PresentValue) {
			out[k] = SomeSlot(slot.OriginalValue)
		}
	}
	return out
}

// destroyedStorageOverlay builds a Destroyed-tagged undo entry for every slot
// touched by the transition, used when a self-destruct wipes storage that a
// subsequent recreate then re-sets.
func destroyedStorageOverlay(s Storage) map[types.Hash]RevertToSlot {
	out := make(map[types.Hash]RevertToSlot, len(s))
	for k := range s {
		out[k] = DestroyedSlot()
	}
	return out
}

// extendStorage copies src into dst in place and returns dst, creating dst if
// nil. This is the "storage.extend(new_present_storage)" step shared by
// several fold branches.
func extendStorage(dst PlainStorage, src PlainStorage) PlainStorage {
	if dst == nil {
		dst = make(PlainStorage, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// explode drains account's storage into Some(value) revert entries and
// returns an AccountRevert that restores account.Info as the header. Used
// when a fold destroys an account outright.
func explode(originalStatus AccountStatus, account *PlainAccount) *AccountRevert {
	storage := make(map[types.Hash]RevertToSlot, len(account.Storage))
	for k, v := range account.Storage {
		storage[k] = SomeSlot(v)
	}
	return &AccountRevert{
		Account:        RevertToInfo(account.Info.Copy()),
		Storage:        storage,
		OriginalStatus: originalStatus,
	}
}

// explodeWithAftereffect is like explode, but overlays destroyedOverlay onto
// the drained storage (without clobbering slots already present from the
// drain), for the case where the destroy is immediately followed by a
// recreate that touches additional slots.
func explodeWithAftereffect(originalStatus AccountStatus, account *PlainAccount, destroyedOverlay map[types.Hash]RevertToSlot) *AccountRevert {
	storage := make(map[types.Hash]RevertToSlot, len(account.Storage)+len(destroyedOverlay))
	for k, v := range account.Storage {
		storage[k] = SomeSlot(v)
	}
	for k := range destroyedOverlay {
		if _, ok := storage[k]; !ok {
			storage[k] = DestroyedSlot()
		}
	}
	return &AccountRevert{
		Account:        RevertToInfo(account.Info.Copy()),
		Storage:        storage,
		OriginalStatus: originalStatus,
	}
}

// updatePartOfDestroyed is the "pre-destroy path" shared by the DestroyedNew,
// DestroyedNewChanged and DestroyedAgain target statuses: when the account
// was still "alive" (NewChanged, New, Changed or LoadedEmptyEIP161) at the
// moment the destroy/recreate transition arrives, the whole prior lifetime
// is folded into a single explode-with-aftereffect revert, tagged with the
// pre-destroy status itself.
func updatePartOfDestroyed(b *BundleAccount, destroyedOverlay map[types.Hash]RevertToSlot) (*AccountRevert, bool) {
	switch b.Status {
	case NewChanged, New, Changed, LoadedEmptyEIP161:
		return explodeWithAftereffect(b.Status, accountOrDefault(b), destroyedOverlay), true
	default:
		return nil, false
	}
}

// UpdateAndCreateRevert folds a single TransitionAccount into the receiver,
// mutating it to the post-fold state and returning the AccountRevert needed
// to undo the fold, or nil if the fold was a no-op.
//
// The two-dimensional switch below is keyed first on t.Status (the incoming
// target), then on b.Status (the account's current lifecycle tag); any
// (b.Status, t.Status) pair not listed is an invariant violation in the
// caller and panics rather than being silently absorbed.
func (b *BundleAccount) UpdateAndCreateRevert(t TransitionAccount) *AccountRevert {
	newPresent := newPresentStorage(t.Storage)
	previousFromUpdate := previousStorageFromUpdate(t.Storage)

	switch t.Status {
	case Loaded, LoadedNotExisting, LoadedEmptyEIP161:
		// Idempotent re-observations: never mutate, never produce a revert.
		return nil

	case Changed:
		switch b.Status {
		case Loaded:
			old := accountOrDefault(b)
			revertAccount := revertInfoFor(old.Info, t.Info)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = Changed
			return &AccountRevert{Account: revertAccount, Storage: previousFromUpdate, OriginalStatus: Loaded}
		case Changed:
			old := accountOrDefault(b)
			revertAccount := revertInfoFor(old.Info, t.Info)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = Changed
			return &AccountRevert{Account: revertAccount, Storage: previousFromUpdate, OriginalStatus: Changed}
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	case New:
		switch b.Status {
		case LoadedEmptyEIP161:
			old := accountOrDefault(b)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = New
			return &AccountRevert{Account: RevertToInfo(NewAccountInfo()), Storage: previousFromUpdate, OriginalStatus: LoadedEmptyEIP161}
		case LoadedNotExisting:
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			b.Status = New
			return &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: LoadedNotExisting}
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	case NewChanged:
		switch b.Status {
		case LoadedEmptyEIP161:
			old := accountOrDefault(b)
			revertAccount := revertInfoFor(NewAccountInfo(), t.Info)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = New // collapses: the empty-to-changed step never produced a distinct NewChanged
			return &AccountRevert{Account: revertAccount, Storage: previousFromUpdate, OriginalStatus: LoadedEmptyEIP161}
		case LoadedNotExisting:
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			b.Status = New
			return &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: LoadedNotExisting}
		case New:
			old := accountOrDefault(b)
			revertAccount := revertInfoFor(old.Info, t.Info)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = NewChanged
			return &AccountRevert{Account: revertAccount, Storage: previousFromUpdate, OriginalStatus: New}
		case NewChanged:
			old := accountOrDefault(b)
			revertAccount := revertInfoFor(old.Info, t.Info)
			storage := extendStorage(old.Storage, newPresent)
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: storage}
			b.Status = NewChanged
			return &AccountRevert{Account: revertAccount, Storage: previousFromUpdate, OriginalStatus: NewChanged}
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	case Destroyed:
		switch b.Status {
		case LoadedNotExisting:
			return nil // destroying a non-existent account is a no-op
		case NewChanged, New, Changed, LoadedEmptyEIP161:
			revert := explode(b.Status, accountOrDefault(b))
			b.Status = Destroyed
			b.Account = nil
			return revert
		case Loaded:
			// Quirk preserved from the source: the pre-destruct status here
			// is recorded as LoadedEmptyEIP161, not Loaded.
			revert := explode(LoadedEmptyEIP161, accountOrDefault(b))
			b.Status = Destroyed
			b.Account = nil
			return revert
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	case DestroyedNew:
		if revert, ok := updatePartOfDestroyed(b, destroyedStorageOverlay(t.Storage)); ok {
			b.Status = DestroyedNew
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return revert
		}
		switch b.Status {
		case Destroyed:
			b.Status = DestroyedNew
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: Destroyed}
		case LoadedNotExisting:
			// The intervening destroy is degenerate: collapse straight to New.
			b.Status = New
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: LoadedNotExisting}
		case DestroyedAgain:
			revert := explodeWithAftereffect(DestroyedAgain, &PlainAccount{Info: NewAccountInfo(), Storage: PlainStorage{}}, destroyedStorageOverlay(t.Storage))
			b.Status = DestroyedNew
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return revert
		case DestroyedNew:
			// Unresolved in the source: how renewed bytecode should be
			// folded across a second destroy-and-recreate at the same
			// address. No mutation, no revert.
			return nil
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	case DestroyedNewChanged:
		if revert, ok := updatePartOfDestroyed(b, destroyedStorageOverlay(t.Storage)); ok {
			b.Status = DestroyedNewChanged
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return revert
		}
		var revert *AccountRevert
		switch b.Status {
		case Destroyed:
			revert = &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: DestroyedNewChanged}
		case DestroyedNew:
			old := accountOrDefault(b)
			revert = &AccountRevert{Account: RevertToInfo(old.Info.Copy()), Storage: previousFromUpdate, OriginalStatus: DestroyedNewChanged}
		case DestroyedNewChanged:
			old := accountOrDefault(b)
			revert = &AccountRevert{Account: revertInfoFor(old.Info, t.Info), Storage: previousFromUpdate, OriginalStatus: DestroyedNewChanged}
		case LoadedNotExisting:
			// Collapses straight to New, same as the DestroyedNew case.
			b.Status = New
			b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
			return &AccountRevert{Account: DeleteItRevert(), Storage: previousFromUpdate, OriginalStatus: DestroyedNewChanged}
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}
		// Quirk preserved from the source: every non-collapsed branch here
		// lands on DestroyedNew, not DestroyedNewChanged.
		b.Status = DestroyedNew
		b.Account = &PlainAccount{Info: t.Info.Copy(), Storage: newPresent}
		return revert

	case DestroyedAgain:
		if revert, ok := updatePartOfDestroyed(b, map[types.Hash]RevertToSlot{}); ok {
			b.Status = DestroyedAgain
			b.Account = nil
			return revert
		}
		switch b.Status {
		case Destroyed, DestroyedAgain, LoadedNotExisting:
			return nil
		case DestroyedNew:
			old := accountOrDefault(b)
			b.Status = DestroyedAgain
			b.Account = nil
			return &AccountRevert{Account: RevertToInfo(old.Info.Copy()), Storage: previousFromUpdate, OriginalStatus: DestroyedNew}
		case DestroyedNewChanged:
			old := accountOrDefault(b)
			b.Status = DestroyedAgain
			b.Account = nil
			return &AccountRevert{Account: RevertToInfo(old.Info.Copy()), Storage: previousFromUpdate, OriginalStatus: DestroyedNewChanged}
		default:
			panic(unreachableMsg(b.Status, t.Status))
		}

	default:
		panic(fmt.Sprintf("bundle: unknown transition status %v", t.Status))
	}
}

func unreachableMsg(from, to AccountStatus) string {
	return fmt.Sprintf("bundle: illegal transition %s -> %s violates the fold's invariants", from, to)
}

// --- Auxiliary operations ---

// StorageSlotValue returns the account's present value for key, if the
// account exists and has touched that slot.
func (b *BundleAccount) StorageSlotValue(key types.Hash) (*uint256.Int, bool) {
	if b.Account == nil {
		return nil, false
	}
	v, ok := b.Account.Storage[key]
	return v, ok
}

// AccountInfo returns a copy of the account's current header, or nil if the
// account does not currently exist.
func (b *BundleAccount) AccountInfo() *AccountInfo {
	if b.Account == nil {
		return nil
	}
	return b.Account.Info.Copy()
}

// IsSome reports whether the bundle account currently represents a live
// account value.
func (b *BundleAccount) IsSome() bool {
	switch b.Status {
	case Changed, New, NewChanged, DestroyedNew, DestroyedNewChanged:
		return true
	default:
		return false
	}
}

// TouchEmpty applies the EIP-161 "touch an empty account" transition,
// clearing the account to a destroyed state with no value.
func (b *BundleAccount) TouchEmpty() {
	switch b.Status {
	case DestroyedNew:
		b.Status = DestroyedAgain
	case New, LoadedEmptyEIP161:
		b.Status = Destroyed
	default:
		panic(fmt.Sprintf("bundle: touch_empty called on invalid status %s", b.Status))
	}
	b.Account = nil
}

// SelfDestruct ejects the current account info and returns a TransitionAccount
// recording the destruction, for the caller to fold back in via
// UpdateAndCreateRevert.
func (b *BundleAccount) SelfDestruct() TransitionAccount {
	switch b.Status {
	case DestroyedNew, DestroyedNewChanged, Destroyed:
		b.Status = DestroyedAgain
	default:
		b.Status = Destroyed
	}
	b.Account = nil
	return TransitionAccount{
		Info:    nil,
		Status:  b.Status,
		Storage: Storage{},
	}
}
