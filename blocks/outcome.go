package blocks

// Outcome is what Write did with a batch.
type Outcome int

const (
	// Unknown is the zero Outcome, reported when Write failed.
	Unknown Outcome = iota
	// Created means the block file did not exist and was written.
	Created
	// Appended means the batch was added to an incomplete block file.
	Appended
	// SkippedComplete means the block file already holds a complete block.
	SkippedComplete
	// SkippedDuplicate means the ledger already holds this exact contribution
	// to an incomplete block file.
	SkippedDuplicate
	// RejectedOversize means the block file is, or would become, longer than
	// a complete block. Nothing is written.
	RejectedOversize
)

var outcomeNames = map[Outcome]string{
	Created:          "created",
	Appended:         "appended",
	SkippedComplete:  "skipped",
	SkippedDuplicate: "skipped-duplicate",
	RejectedOversize: "rejected-oversize",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}

	return "unknown"
}

// Wrote reports whether lines were written.
func (o Outcome) Wrote() bool {
	return o == Created || o == Appended
}
