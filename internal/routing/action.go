package routing

import (
	"fmt"
	"sort"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

const (
	PriorityUrgent   = 5
	PriorityStandard = 3
)

// PriorityFor maps an acuity tier to queue priority. Medium and low share
// the same level.
func PriorityFor(tier scoring.AcuityTier) int {
	if tier == scoring.AcuityHigh {
		return PriorityUrgent
	}
	return PriorityStandard
}

// BuildActionItem creates the initial-contact item for a newly assessed client.
func BuildActionItem(client *store.Client, caseworkerID string, score scoring.VulnerabilityScore, plan scoring.InterventionPlan) *store.ActionItem {
	return newItem(client, caseworkerID, store.ActionInitialContact, score, plan,
		fmt.Sprintf("New intake: %s acuity, score %d/%d", score.AcuityTier, score.TotalScore, scoring.MaxTotalScore))
}

// BuildFollowUpItem creates the item queued when an assigned client is reassessed.
func BuildFollowUpItem(client *store.Client, caseworkerID string, score scoring.VulnerabilityScore, plan scoring.InterventionPlan) *store.ActionItem {
	return newItem(client, caseworkerID, store.ActionFollowUp, score, plan,
		fmt.Sprintf("Reassessment: %s acuity, score %d/%d", score.AcuityTier, score.TotalScore, scoring.MaxTotalScore))
}

func newItem(client *store.Client, caseworkerID string, typ store.ActionType, score scoring.VulnerabilityScore, plan scoring.InterventionPlan, desc string) *store.ActionItem {
	return &store.ActionItem{
		CaseworkerID:    caseworkerID,
		ClientID:        client.ID,
		ClientName:      client.FullName(),
		ActionType:      typ,
		Priority:        PriorityFor(score.AcuityTier),
		Description:     desc,
		Recommendations: &plan,
		Completed:       false,
	}
}

// SortQueue orders items by priority descending, then oldest first.
func SortQueue(items []*store.ActionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
