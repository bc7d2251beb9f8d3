package model

// DuplicateAction is a remediation for a duplicate group.
type DuplicateAction string

// Duplicate actions. The first three are the ones detection suggests;
// KeepFirst and KeepLatest are only chosen by users.
const (
	ActionRemoveDuplicates DuplicateAction = "remove_duplicates"
	ActionMerge            DuplicateAction = "merge"
	ActionKeepAll          DuplicateAction = "keep_all"
	ActionKeepFirst        DuplicateAction = "keep_first"
	ActionKeepLatest       DuplicateAction = "keep_latest"
)

// Valid reports whether a is a known action.
func (a DuplicateAction) Valid() bool {
	switch a {
	case ActionRemoveDuplicates, ActionMerge, ActionKeepAll, ActionKeepFirst, ActionKeepLatest:
		return true
	}
	return false
}

// DuplicateGroup is a cluster of transactions judged likely to be the same event.
// Transactions[0] is the anchor: the earliest member in the input order.
type DuplicateGroup struct {
	ID              string
	Reason          string
	SuggestedAction DuplicateAction
	Transactions    []Transaction
	Confidence      float64
}

// IDs returns the member transaction ids in group order.
func (g *DuplicateGroup) IDs() []string {
	ids := make([]string, len(g.Transactions))
	for i, t := range g.Transactions {
		ids[i] = t.ID
	}
	return ids
}

// TransactionUpdate describes a field change the caller should persist.
// Nil fields are left untouched.
type TransactionUpdate struct {
	Description *string
	CategoryID  *string
}

// ProposedUpdate pairs a transaction id with the update proposed for it.
type ProposedUpdate struct {
	Updates TransactionUpdate
	ID      string
}

// ActionResult is the effect of applying a duplicate action. It is advice only:
// the caller performs the deletes and updates against its own store.
type ActionResult struct {
	ToUpdate *ProposedUpdate
	Message  string
	ToDelete []string
}
