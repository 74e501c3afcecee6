package state

import (
	"bytes"

	"github.com/holiman/uint256"

	"github.com/evmstate/bundle"
	"github.com/evmstate/bundle/core/types"
)

// ExportTransitions walks every state object currently held by the
// MemoryStateDB and converts it into a bundle.AddressTransition, bridging
// MemoryStateDB's transaction-execution view of the world onto the bundle
// package's per-block fold. It does not reset or mark what it has exported,
// so a second call returns the same objects again. A self-destructed object
// becomes a bundle.Destroyed transition and every other object a
// bundle.Changed one; newly created accounts are not exported as New.
func (s *MemoryStateDB) ExportTransitions() []bundle.AddressTransition {
	out := make([]bundle.AddressTransition, 0, len(s.stateObjects))
	for addr, obj := range s.stateObjects {
		out = append(out, bundle.AddressTransition{
			Address:    types.BytesToAddress(addr.Bytes()),
			Transition: exportTransition(obj),
		})
	}
	return out
}

// exportTransition converts a single stateObject into the TransitionAccount
// the bundle fold expects. Only the self-destruct flag affects the status
// (Destroyed, else Changed); EIP-161 empty accounts get no special tag.
func exportTransition(obj *stateObject) bundle.TransitionAccount {
	if obj.selfDestructed {
		return bundle.TransitionAccount{
			Status:  bundle.Destroyed,
			Storage: bundle.Storage{},
		}
	}

	info := &bundle.AccountInfo{
		Nonce:    obj.account.Nonce,
		CodeHash: types.BytesToHash(obj.account.CodeHash),
		Code:     obj.code,
	}
	if obj.account.Balance != nil {
		balance, overflow := uint256.FromBig(obj.account.Balance)
		if overflow {
			balance = new(uint256.Int)
		}
		info.Balance = balance
	} else {
		info.Balance = new(uint256.Int)
	}

	storage := make(bundle.Storage, len(obj.dirtyStorage))
	for key, val := range obj.dirtyStorage {
		orig := obj.committedStorage[key]
		storage[key] = bundle.StorageSlot{
			OriginalValue: hashToUint256(orig),
			PresentValue:  hashToUint256(val),
		}
	}

	return bundle.TransitionAccount{
		Info:    info,
		Status:  bundle.Changed,
		Storage: storage,
	}
}

func hashToUint256(h types.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h[:])
}

// BuildStateDiff walks every touched state object and records its
// balance/nonce/code/storage changes into a BlockStateDiff, for hosts that
// want a human-readable per-block diff alongside (or instead of) the
// bundle's own changeset. Unlike ExportTransitions, which feeds the fold,
// this never touches the bundle package; it is a standalone reporting view
// over the same stateObjects.
func (s *MemoryStateDB) BuildStateDiff(blockNumber uint64, blockHash types.Hash) *BlockStateDiff {
	builder := NewStateDiffBuilder(blockNumber, blockHash)

	for addr, obj := range s.stateObjects {
		builder.Touch(addr)
		if obj.account.Balance.Cmp(obj.committedAccount.Balance) != 0 {
			builder.RecordBalanceChange(addr, obj.committedAccount.Balance, obj.account.Balance)
		}
		if obj.account.Nonce != obj.committedAccount.Nonce {
			builder.RecordNonceChange(addr, obj.committedAccount.Nonce, obj.account.Nonce)
		}
		if !bytes.Equal(obj.code, obj.committedCode) {
			builder.RecordCodeChange(addr, obj.committedCode, obj.code)
		}
		for key, val := range obj.dirtyStorage {
			from := obj.committedStorage[key]
			if from == val {
				continue
			}
			builder.RecordStorageChange(addr, key, from, val)
		}
	}

	return builder.Build()
}
