package storage

import (
	"errors"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Provider is the persistence interface the rest of the application talks to.
// Implementations: SQLStore (sqlite or postgres) and JSONStore.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (Settings, error)
	SaveSettings(Settings) error

	// Catalog
	GetActivePlan(patientID string) (*models.CarePlan, error)
	SavePlan(plan models.CarePlan) error
	ListItems(planID string, activeOnly bool) ([]models.PlanItem, error)
	GetItem(itemID string) (models.PlanItem, error)
	UpsertItem(item models.PlanItem) error
	DeleteItem(planID, itemID string) error

	// Daily instances
	ListInstances(patientID, date string) ([]models.DailyInstance, error)
	UpsertInstances(patientID, date string, batch []models.DailyInstance) error
	UpdateInstanceStatus(patientID, date, instanceID string, status models.InstanceStatus, logEntryID string) error
	RemoveStaleInstances(patientID, date string, validItemIDs []string) (int, error)

	// Snooze overrides
	ListOverrides(patientID, date string) ([]models.Override, error)
	SaveOverride(o models.Override) error

	// Appointments
	ListAppointments(patientID, date string) ([]models.Appointment, error)
	GetAppointment(id string) (models.Appointment, error)
	UpsertAppointment(a models.Appointment) error

	// Idempotency markers for one-time maintenance passes. Persisted so the
	// guarantee survives process restarts.
	HasMarker(name string) (bool, error)
	SetMarker(name string) error

	// Utils
	GetConfigPath() string
}

// Settings holds user-tunable knobs stored alongside the data.
type Settings struct {
	PatientID            string `json:"patient_id"`
	PatientName          string `json:"patient_name"`
	DayStart             string `json:"day_start"`
	DayEnd               string `json:"day_end"`
	GracePeriodMin       int    `json:"grace_period_min"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	Timezone             string `json:"timezone"`
}
