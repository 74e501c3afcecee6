// Package bundle implements the bundle account state machine: the
// per-address fold that aggregates a sequence of per-block account
// transitions into a single before/after changeset, together with the
// revert information needed to undo it.
package bundle

// AccountStatus tags the lifecycle state of a BundleAccount. It tracks not
// just whether the account currently exists, but how it came to be in that
// state, which determines how the next transition folds in and what must be
// recorded to undo it.
type AccountStatus uint8

const (
	// LoadedNotExisting means the account was looked up in the database and
	// does not exist there. No write has touched it yet.
	LoadedNotExisting AccountStatus = iota

	// Loaded means the account was loaded from the database and exists,
	// unchanged since.
	Loaded

	// LoadedEmptyEIP161 means the account was loaded from the database and
	// is "empty" per EIP-161 (zero nonce, zero balance, no code).
	LoadedEmptyEIP161

	// New means the account was created within this block, either where the
	// database had no entry (LoadedNotExisting) or over an EIP-161 empty
	// account (LoadedEmptyEIP161).
	New

	// Changed means an account that existed in the database (Loaded) was
	// modified.
	Changed

	// NewChanged means an account created within this block (New) was
	// modified again afterwards, within the same fold.
	NewChanged

	// Destroyed means a previously-existing account was self-destructed.
	Destroyed

	// DestroyedNew means an account was self-destructed and a new account
	// was created at the same address within the same block.
	DestroyedNew

	// DestroyedNewChanged means a DestroyedNew account was subsequently
	// changed again.
	DestroyedNewChanged

	// DestroyedAgain means an account that was destroyed and then recreated
	// at the same address (DestroyedNew, DestroyedNewChanged) was destroyed
	// again.
	DestroyedAgain
)

// String returns a human-readable name for the status, used in logs and
// test failure messages.
func (s AccountStatus) String() string {
	switch s {
	case LoadedNotExisting:
		return "LoadedNotExisting"
	case Loaded:
		return "Loaded"
	case LoadedEmptyEIP161:
		return "LoadedEmptyEIP161"
	case New:
		return "New"
	case Changed:
		return "Changed"
	case NewChanged:
		return "NewChanged"
	case Destroyed:
		return "Destroyed"
	case DestroyedNew:
		return "DestroyedNew"
	case DestroyedNewChanged:
		return "DestroyedNewChanged"
	case DestroyedAgain:
		return "DestroyedAgain"
	default:
		return "Unknown"
	}
}

// IsDestroyed reports whether the status denotes an account whose most
// recent history includes a self-destruct (Destroyed or DestroyedAgain) with
// no new account having recreated it yet.
func (s AccountStatus) IsDestroyed() bool {
	return s == Destroyed || s == DestroyedAgain
}

// wasDestroyedInBlock reports whether this status implies some earlier event
// in the current fold was a self-destruct at this address, regardless of
// whether it has since been recreated.
func (s AccountStatus) wasDestroyedInBlock() bool {
	switch s {
	case Destroyed, DestroyedNew, DestroyedNewChanged, DestroyedAgain:
		return true
	default:
		return false
	}
}

// HadValue reports whether, prior to the incoming transition, the status
// implies there was an account value present (as opposed to "not existing").
func (s AccountStatus) HadValue() bool {
	switch s {
	case LoadedNotExisting:
		return false
	default:
		return true
	}
}

// NotExisting reports whether the status represents an account slot with no
// value: either never loaded (LoadedNotExisting) or destroyed with nothing
// created since (Destroyed, DestroyedAgain).
func (s AccountStatus) NotExisting() bool {
	switch s {
	case LoadedNotExisting, Destroyed, DestroyedAgain:
		return true
	default:
		return false
	}
}
