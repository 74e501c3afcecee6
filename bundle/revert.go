package bundle

import (
	"github.com/holiman/uint256"

	"github.com/evmstate/bundle/core/types"
)

// AccountInfoRevertKind tags how an AccountRevert restores an account's
// header.
type AccountInfoRevertKind uint8

const (
	// RevertDoNothing means the header did not change; no restore needed.
	RevertDoNothing AccountInfoRevertKind = iota
	// RevertDeleteIt means the account must be removed entirely on revert.
	RevertDeleteIt
	// RevertTo means the header must be set back to the carried AccountInfo.
	RevertTo
)

// AccountInfoRevert is a closed tagged variant: DoNothing | DeleteIt |
// RevertTo(AccountInfo). Info is only meaningful when Kind == RevertTo.
type AccountInfoRevert struct {
	Kind AccountInfoRevertKind
	Info *AccountInfo
}

// DoNothingRevert builds the DoNothing variant.
func DoNothingRevert() AccountInfoRevert { return AccountInfoRevert{Kind: RevertDoNothing} }

// DeleteItRevert builds the DeleteIt variant.
func DeleteItRevert() AccountInfoRevert { return AccountInfoRevert{Kind: RevertDeleteIt} }

// RevertToInfo builds the RevertTo(info) variant.
func RevertToInfo(info *AccountInfo) AccountInfoRevert {
	return AccountInfoRevert{Kind: RevertTo, Info: info}
}

// revertInfoFor picks DoNothing when the account header is unchanged by the
// fold, or RevertTo(old) when it differs. This is the "DoNothing vs RevertTo"
// decision point named throughout the fold table.
func revertInfoFor(old, updated *AccountInfo) AccountInfoRevert {
	if equalHeader(old, updated) {
		return DoNothingRevert()
	}
	return RevertToInfo(old)
}

// RevertToSlotKind tags how a single storage slot is restored.
type RevertToSlotKind uint8

const (
	// SlotRestore means the slot must be set back to the carried value.
	SlotRestore RevertToSlotKind = iota
	// SlotDestroyed means the slot must be wiped to zero/absent: used when a
	// self-destruct wiped storage that a subsequent recreate then re-set.
	SlotDestroyed
)

// RevertToSlot is a closed tagged variant over a single storage slot's
// revert action: Some(value) | Destroyed.
type RevertToSlot struct {
	Kind  RevertToSlotKind
	Value *uint256.Int
}

// SomeSlot builds the Some(value) variant.
func SomeSlot(value *uint256.Int) RevertToSlot {
	return RevertToSlot{Kind: SlotRestore, Value: new(uint256.Int).Set(value)}
}

// DestroyedSlot builds the Destroyed variant.
func DestroyedSlot() RevertToSlot { return RevertToSlot{Kind: SlotDestroyed} }

// AccountRevert is everything needed to undo one fold call: how to restore
// the account header, how to restore each touched storage slot, and which
// status the account must return to.
type AccountRevert struct {
	Account        AccountInfoRevert
	Storage        map[types.Hash]RevertToSlot
	OriginalStatus AccountStatus
}
