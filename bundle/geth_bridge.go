package bundle

import (
	gethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/evmstate/bundle/core/types"
)

// ToGethAddress converts a bundle Address to go-ethereum's common.Address,
// for handing an extracted changeset to go-ethereum-based tooling (e.g. a
// reference EVM used to cross-check execution results).
func ToGethAddress(addr types.Address) gethcommon.Address {
	return gethcommon.BytesToAddress(addr.Bytes())
}

// FromGethAddress converts a go-ethereum common.Address into a bundle
// Address.
func FromGethAddress(addr gethcommon.Address) types.Address {
	return types.BytesToAddress(addr.Bytes())
}

// ToGethHash converts a bundle Hash to go-ethereum's common.Hash.
func ToGethHash(h types.Hash) gethcommon.Hash {
	return gethcommon.BytesToHash(h.Bytes())
}

// FromGethHash converts a go-ethereum common.Hash into a bundle Hash.
func FromGethHash(h gethcommon.Hash) types.Hash {
	return types.BytesToHash(h.Bytes())
}

// ToGethStateAccount converts an AccountInfo into go-ethereum's
// core/types.StateAccount, the account header representation go-ethereum's
// own trie-backed state database expects. Root is left zero since the
// bundle tracks storage as a flat map, not a trie; callers that need a real
// storage root should compute one from the account's PlainStorage before
// handing the result to go-ethereum.
func ToGethStateAccount(info *AccountInfo) *gethtypes.StateAccount {
	if info == nil {
		return nil
	}
	balance, overflow := uint256.FromBig(info.Balance.ToBig())
	if overflow {
		balance = new(uint256.Int)
	}
	return &gethtypes.StateAccount{
		Nonce:    info.Nonce,
		Balance:  balance,
		Root:     gethcommon.Hash{},
		CodeHash: info.CodeHash.Bytes(),
	}
}

// FromGethStateAccount builds an AccountInfo from go-ethereum's
// core/types.StateAccount, for importing a reference-implementation result
// back into the bundle's own representation. Code bytes are not carried by
// StateAccount and must be supplied separately by the caller.
func FromGethStateAccount(acc *gethtypes.StateAccount) *AccountInfo {
	if acc == nil {
		return nil
	}
	info := &AccountInfo{
		Nonce:    acc.Nonce,
		CodeHash: types.BytesToHash(acc.CodeHash),
	}
	if acc.Balance != nil {
		info.Balance = new(uint256.Int).Set(acc.Balance)
	} else {
		info.Balance = new(uint256.Int)
	}
	return info
}

// GethChangeset mirrors AccountChangeset using go-ethereum's address/account
// types, for diffing bundle output against a go-ethereum-executed reference
// block.
type GethChangeset struct {
	Address gethcommon.Address
	Exists  bool
	Account *gethtypes.StateAccount
}

// ToGethChangeset converts the bundle's own extracted changeset into the
// go-ethereum-typed form.
func ToGethChangeset(cs []AccountChangeset) []GethChangeset {
	out := make([]GethChangeset, 0, len(cs))
	for _, c := range cs {
		gc := GethChangeset{Address: ToGethAddress(c.Address)}
		if c.Account != nil {
			gc.Exists = true
			gc.Account = ToGethStateAccount(c.Account.Info)
		}
		out = append(out, gc)
	}
	return out
}
