package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

// fileStore is the on-disk layout of the JSON provider.
type fileStore struct {
	Version      int                              `json:"version"`
	Settings     Settings                         `json:"settings"`
	Plans        map[string]models.CarePlan       `json:"plans"`
	Items        map[string]models.PlanItem       `json:"items"`
	Instances    map[string]models.DailyInstance  `json:"instances"` // by instance id
	Overrides    map[string]models.Override       `json:"overrides"` // by patient|date|item|window
	Appointments map[string]models.Appointment    `json:"appointments"`
	Markers      map[string]time.Time             `json:"markers"`
}

// JSONStore implements Provider on a single JSON file. Mainly useful for
// debugging and for environments without a usable sqlite file.
//
// Concurrency note: JSONStore is not safe for concurrent use by multiple
// processes sharing the same path.
type JSONStore struct {
	path  string
	store *fileStore
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{path: configPath}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.store = newFileStore()
	return s.save()
}

func newFileStore() *fileStore {
	return &fileStore{
		Version:      1,
		Settings:     defaultSettings(),
		Plans:        make(map[string]models.CarePlan),
		Items:        make(map[string]models.PlanItem),
		Instances:    make(map[string]models.DailyInstance),
		Overrides:    make(map[string]models.Override),
		Appointments: make(map[string]models.Appointment),
		Markers:      make(map[string]time.Time),
	}
}

func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'embermate init' first")
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	s.store = &fileStore{}
	if err := json.Unmarshal(data, s.store); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}

	// Ensure maps are initialized
	if s.store.Plans == nil {
		s.store.Plans = make(map[string]models.CarePlan)
	}
	if s.store.Items == nil {
		s.store.Items = make(map[string]models.PlanItem)
	}
	if s.store.Instances == nil {
		s.store.Instances = make(map[string]models.DailyInstance)
	}
	if s.store.Overrides == nil {
		s.store.Overrides = make(map[string]models.Override)
	}
	if s.store.Appointments == nil {
		s.store.Appointments = make(map[string]models.Appointment)
	}
	if s.store.Markers == nil {
		s.store.Markers = make(map[string]time.Time)
	}

	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	return nil
}

func (s *JSONStore) loaded() error {
	if s.store == nil {
		return fmt.Errorf("storage not loaded")
	}
	return nil
}

func (s *JSONStore) GetSettings() (Settings, error) {
	if err := s.loaded(); err != nil {
		return Settings{}, err
	}
	return s.store.Settings, nil
}

func (s *JSONStore) SaveSettings(settings Settings) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.store.Settings = settings
	return s.save()
}

func (s *JSONStore) GetActivePlan(patientID string) (*models.CarePlan, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	for _, p := range s.store.Plans {
		if p.PatientID == patientID && p.Active {
			plan := p
			return &plan, nil
		}
	}
	return nil, nil
}

func (s *JSONStore) SavePlan(plan models.CarePlan) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.store.Plans[plan.ID] = plan
	return s.save()
}

func (s *JSONStore) ListItems(planID string, activeOnly bool) ([]models.PlanItem, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	var items []models.PlanItem
	for _, item := range s.store.Items {
		if item.PlanID != planID {
			continue
		}
		if activeOnly && !item.Active {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (s *JSONStore) GetItem(itemID string) (models.PlanItem, error) {
	if err := s.loaded(); err != nil {
		return models.PlanItem{}, err
	}
	item, ok := s.store.Items[itemID]
	if !ok {
		return models.PlanItem{}, ErrNotFound
	}
	return item, nil
}

func (s *JSONStore) UpsertItem(item models.PlanItem) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.store.Items[item.ID] = item
	return s.save()
}

func (s *JSONStore) DeleteItem(planID, itemID string) error {
	if err := s.loaded(); err != nil {
		return err
	}
	item, ok := s.store.Items[itemID]
	if !ok || item.PlanID != planID {
		return ErrNotFound
	}
	delete(s.store.Items, itemID)
	return s.save()
}

func (s *JSONStore) ListInstances(patientID, date string) ([]models.DailyInstance, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	var instances []models.DailyInstance
	for _, inst := range s.store.Instances {
		if inst.PatientID == patientID && inst.Date == date {
			instances = append(instances, inst)
		}
	}
	sort.Slice(instances, func(i, j int) bool {
		if instances[i].ScheduledMin != instances[j].ScheduledMin {
			return instances[i].ScheduledMin < instances[j].ScheduledMin
		}
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})
	return instances, nil
}

func (s *JSONStore) UpsertInstances(patientID, date string, batch []models.DailyInstance) error {
	if err := s.loaded(); err != nil {
		return err
	}

	existing := make(map[string]bool)
	for _, inst := range s.store.Instances {
		if inst.PatientID == patientID && inst.Date == date {
			existing[inst.Key()] = true
		}
	}

	changed := false
	for _, inst := range batch {
		// Never rewrite an instance that already exists for the key.
		if existing[inst.Key()] {
			continue
		}
		s.store.Instances[inst.ID] = inst
		existing[inst.Key()] = true
		changed = true
	}

	if !changed {
		return nil
	}
	return s.save()
}

func (s *JSONStore) UpdateInstanceStatus(patientID, date, instanceID string, status models.InstanceStatus, logEntryID string) error {
	if err := s.loaded(); err != nil {
		return err
	}
	inst, ok := s.store.Instances[instanceID]
	if !ok || inst.PatientID != patientID || inst.Date != date {
		return ErrNotFound
	}
	if inst.Status.Terminal() {
		return nil
	}
	inst.Status = status
	if logEntryID != "" {
		inst.LogEntryID = logEntryID
	}
	s.store.Instances[instanceID] = inst
	return s.save()
}

func (s *JSONStore) RemoveStaleInstances(patientID, date string, validItemIDs []string) (int, error) {
	if err := s.loaded(); err != nil {
		return 0, err
	}

	valid := make(map[string]bool, len(validItemIDs))
	for _, id := range validItemIDs {
		valid[id] = true
	}

	removed := 0
	for id, inst := range s.store.Instances {
		if inst.PatientID != patientID || inst.Date != date {
			continue
		}
		if !valid[inst.ItemID] {
			delete(s.store.Instances, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, s.save()
}

func overrideKey(o models.Override) string {
	return o.PatientID + "|" + o.Date + "|" + o.ItemID + "|" + o.WindowID
}

func (s *JSONStore) ListOverrides(patientID, date string) ([]models.Override, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	var overrides []models.Override
	for _, o := range s.store.Overrides {
		if o.PatientID == patientID && o.Date == date {
			overrides = append(overrides, o)
		}
	}
	return overrides, nil
}

func (s *JSONStore) SaveOverride(o models.Override) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.store.Overrides[overrideKey(o)] = o
	return s.save()
}

func (s *JSONStore) ListAppointments(patientID, date string) ([]models.Appointment, error) {
	if err := s.loaded(); err != nil {
		return nil, err
	}
	var appts []models.Appointment
	for _, a := range s.store.Appointments {
		if a.PatientID == patientID && a.Date == date {
			appts = append(appts, a)
		}
	}
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].StartMin < appts[j].StartMin
	})
	return appts, nil
}

func (s *JSONStore) GetAppointment(id string) (models.Appointment, error) {
	if err := s.loaded(); err != nil {
		return models.Appointment{}, err
	}
	a, ok := s.store.Appointments[id]
	if !ok {
		return models.Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *JSONStore) UpsertAppointment(a models.Appointment) error {
	if err := s.loaded(); err != nil {
		return err
	}
	s.store.Appointments[a.ID] = a
	return s.save()
}

func (s *JSONStore) HasMarker(name string) (bool, error) {
	if err := s.loaded(); err != nil {
		return false, err
	}
	_, ok := s.store.Markers[name]
	return ok, nil
}

func (s *JSONStore) SetMarker(name string) error {
	if err := s.loaded(); err != nil {
		return err
	}
	if _, ok := s.store.Markers[name]; ok {
		return nil
	}
	s.store.Markers[name] = time.Now().UTC()
	return s.save()
}

// GetConfigPath returns the path to the underlying storage file.
func (s *JSONStore) GetConfigPath() string {
	return s.path
}
