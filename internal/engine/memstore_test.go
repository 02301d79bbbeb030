package engine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
)

var errStoreDown = errors.New("store unreachable")

// memStore is an in-memory Store for engine tests. It mirrors the persistence
// semantics that matter: upsert never rewrites an existing (item, window) key,
// and terminal statuses are never overwritten.
type memStore struct {
	mu sync.Mutex

	settings     storage.Settings
	plans        map[string]models.CarePlan
	items        map[string]models.PlanItem
	instances    map[string]models.DailyInstance
	overrides    map[string]models.Override
	appointments map[string]models.Appointment
	markers      map[string]bool

	failInstanceWrites bool
}

func newMemStore() *memStore {
	return &memStore{
		settings:     storage.Settings{PatientID: "p1", GracePeriodMin: 120},
		plans:        make(map[string]models.CarePlan),
		items:        make(map[string]models.PlanItem),
		instances:    make(map[string]models.DailyInstance),
		overrides:    make(map[string]models.Override),
		appointments: make(map[string]models.Appointment),
		markers:      make(map[string]bool),
	}
}

func (s *memStore) GetSettings() (storage.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *memStore) GetActivePlan(patientID string) (*models.CarePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.PatientID == patientID && p.Active {
			plan := p
			return &plan, nil
		}
	}
	return nil, nil
}

func (s *memStore) SavePlan(plan models.CarePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	return nil
}

func (s *memStore) ListItems(planID string, activeOnly bool) ([]models.PlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.PlanItem
	for _, item := range s.items {
		if item.PlanID != planID {
			continue
		}
		if activeOnly && !item.Active {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *memStore) UpsertItem(item models.PlanItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *memStore) ListInstances(patientID, date string) ([]models.DailyInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DailyInstance
	for _, inst := range s.instances {
		if inst.PatientID == patientID && inst.Date == date {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledMin < out[j].ScheduledMin })
	return out, nil
}

func (s *memStore) UpsertInstances(patientID, date string, batch []models.DailyInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInstanceWrites {
		return errStoreDown
	}
	existing := make(map[string]bool)
	for _, inst := range s.instances {
		if inst.PatientID == patientID && inst.Date == date {
			existing[inst.Key()] = true
		}
	}
	for _, inst := range batch {
		if existing[inst.Key()] {
			continue
		}
		s.instances[inst.ID] = inst
		existing[inst.Key()] = true
	}
	return nil
}

func (s *memStore) UpdateInstanceStatus(patientID, date, instanceID string, status models.InstanceStatus, logEntryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[instanceID]
	if !ok || inst.PatientID != patientID || inst.Date != date {
		return storage.ErrNotFound
	}
	if inst.Status.Terminal() {
		return nil
	}
	inst.Status = status
	if logEntryID != "" {
		inst.LogEntryID = logEntryID
	}
	s.instances[instanceID] = inst
	return nil
}

func (s *memStore) RemoveStaleInstances(patientID, date string, validItemIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	valid := make(map[string]bool)
	for _, id := range validItemIDs {
		valid[id] = true
	}
	removed := 0
	for id, inst := range s.instances {
		if inst.PatientID == patientID && inst.Date == date && !valid[inst.ItemID] {
			delete(s.instances, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) ListOverrides(patientID, date string) ([]models.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Override
	for _, o := range s.overrides {
		if o.PatientID == patientID && o.Date == date {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) SaveOverride(o models.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[o.PatientID+"|"+o.Date+"|"+o.ItemID+"|"+o.WindowID] = o
	return nil
}

func (s *memStore) ListAppointments(patientID, date string) ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID && a.Date == date {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	return out, nil
}

func (s *memStore) HasMarker(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[name], nil
}

func (s *memStore) SetMarker(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[name] = true
	return nil
}

// Test fixtures shared across engine tests.

func seedPlan(s *memStore, patientID string) models.CarePlan {
	plan := models.CarePlan{
		ID:        "plan-1",
		PatientID: patientID,
		Name:      "Care plan",
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.plans[plan.ID] = plan
	return plan
}

func seedItem(s *memStore, id, planID, name string, itemType models.ItemType, windows ...models.TimeWindow) models.PlanItem {
	item := models.PlanItem{
		ID:       id,
		PlanID:   planID,
		Type:     itemType,
		Name:     name,
		Priority: 2,
		Active:   true,
		Schedule: models.Schedule{
			Frequency: models.FrequencyDaily,
			Windows:   windows,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.items[item.ID] = item
	return item
}

func exactWindow(id, at string) models.TimeWindow {
	return models.TimeWindow{ID: id, Label: models.WindowCustom, At: at}
}

func rangeWindow(id, start, end string, label models.WindowLabel) models.TimeWindow {
	return models.TimeWindow{ID: id, Label: label, Start: start, End: end}
}

// fixedClock pins the engine's notion of now.
func fixedClock(date string, minute int) func() time.Time {
	return func() time.Time {
		t, _ := time.Parse("2006-01-02", date)
		return t.Add(time.Duration(minute) * time.Minute)
	}
}
