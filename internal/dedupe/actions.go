package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/common"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

// MergedMarker is appended to the description of the transaction kept by a merge.
const MergedMarker = "(merged)"

// ApplyAction describes what the caller must delete and update to carry out
// action on group. It never touches the group or any store.
func ApplyAction(group model.DuplicateGroup, action model.DuplicateAction) (model.ActionResult, error) {
	members := group.Transactions

	switch action {
	case model.ActionRemoveDuplicates, model.ActionKeepFirst:
		toDelete := idsOf(members, 1)
		return model.ActionResult{
			ToDelete: toDelete,
			Message:  fmt.Sprintf("%d duplicata(s) removida(s), mantida a primeira transação", len(toDelete)),
		}, nil

	case model.ActionKeepLatest:
		sorted := append([]model.Transaction(nil), members...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Date.After(sorted[j].Date)
		})
		toDelete := idsOf(sorted, 1)
		return model.ActionResult{
			ToDelete: toDelete,
			Message:  fmt.Sprintf("%d duplicata(s) removida(s), mantida a transação mais recente", len(toDelete)),
		}, nil

	case model.ActionMerge:
		result := model.ActionResult{
			ToDelete: idsOf(members, 1),
			Message:  fmt.Sprintf("%d transações mescladas em uma", len(members)),
		}
		if len(members) > 0 {
			description := mergedDescription(members[0].Description)
			result.ToUpdate = &model.ProposedUpdate{
				ID:      members[0].ID,
				Updates: model.TransactionUpdate{Description: &description},
			}
		}
		return result, nil

	case model.ActionKeepAll:
		return model.ActionResult{
			ToDelete: []string{},
			Message:  "Todas as transações foram mantidas",
		}, nil

	default:
		return model.ActionResult{}, fmt.Errorf("%w: %q", common.ErrUnknownAction, action)
	}
}

// idsOf returns the ids of txns from index start on.
func idsOf(txns []model.Transaction, start int) []string {
	ids := []string{}
	for i := start; i < len(txns); i++ {
		ids = append(ids, txns[i].ID)
	}
	return ids
}

func mergedDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if strings.HasSuffix(trimmed, MergedMarker) {
		return trimmed
	}
	if trimmed == "" {
		return MergedMarker
	}
	return trimmed + " " + MergedMarker
}
