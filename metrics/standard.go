package metrics

// Pre-defined metrics for the bundle account state machine. All metrics
// live in DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- State metrics ----

	// StateAccountsTouched tracks the number of distinct addresses the
	// current MemoryStateDB has loaded or created.
	StateAccountsTouched = DefaultRegistry.Gauge("state.accounts_touched")
	// StateCommits counts completed MemoryStateDB.Commit calls.
	StateCommits = DefaultRegistry.Counter("state.commits")
	// StateCommitTime records MemoryStateDB.Commit duration in milliseconds.
	StateCommitTime = DefaultRegistry.Histogram("state.commit_ms")
	// StateSnapshots counts MemoryStateDB.Snapshot calls.
	StateSnapshots = DefaultRegistry.Counter("state.snapshots")
	// StateReverts counts MemoryStateDB.RevertToSnapshot calls.
	StateReverts = DefaultRegistry.Counter("state.reverts")
	// StateJournalEntries tracks the live entry count of the current
	// change journal at the last Commit.
	StateJournalEntries = DefaultRegistry.Gauge("state.journal_entries")
	// StateJournalBytes tracks the estimated byte size of the current
	// change journal at the last Commit.
	StateJournalBytes = DefaultRegistry.Gauge("state.journal_bytes")
)
