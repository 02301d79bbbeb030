package engine

import "fmt"

// reapStale deletes instances for the date whose originating item was fully
// removed from the plan. Deactivated items keep their instances; only items
// that no longer exist at all are considered stale. Idempotent no-op when
// nothing qualifies.
func (e *Engine) reapStale(patientID, date string) (int, error) {
	plan, err := e.store.GetActivePlan(patientID)
	if err != nil {
		return 0, fmt.Errorf("loading plan: %w", err)
	}
	if plan == nil {
		// No plan means no authority on what is stale; leave everything.
		return 0, nil
	}

	items, err := e.store.ListItems(plan.ID, false)
	if err != nil {
		return 0, fmt.Errorf("loading items: %w", err)
	}

	validIDs := make([]string, 0, len(items))
	for _, item := range items {
		validIDs = append(validIDs, item.ID)
	}
	if len(validIDs) == 0 {
		return 0, nil
	}

	return e.store.RemoveStaleInstances(patientID, date, validIDs)
}
