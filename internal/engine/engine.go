package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/constants"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/logger"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/storage"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/timeutil"
)

// Store is the persistence surface the engine needs. storage.Provider
// satisfies it; tests use an in-memory fake.
type Store interface {
	GetSettings() (storage.Settings, error)

	GetActivePlan(patientID string) (*models.CarePlan, error)
	SavePlan(plan models.CarePlan) error
	ListItems(planID string, activeOnly bool) ([]models.PlanItem, error)
	UpsertItem(item models.PlanItem) error

	ListInstances(patientID, date string) ([]models.DailyInstance, error)
	UpsertInstances(patientID, date string, batch []models.DailyInstance) error
	UpdateInstanceStatus(patientID, date, instanceID string, status models.InstanceStatus, logEntryID string) error
	RemoveStaleInstances(patientID, date string, validItemIDs []string) (int, error)

	ListOverrides(patientID, date string) ([]models.Override, error)
	SaveOverride(o models.Override) error

	ListAppointments(patientID, date string) ([]models.Appointment, error)

	HasMarker(name string) (bool, error)
	SetMarker(name string) error
}

// ConfigSource provides a read-only snapshot of the externally-managed regimen
// configuration (active medications, enabled trackable categories).
type ConfigSource interface {
	Snapshot() (ConfigSnapshot, error)
}

// ExternalEntry is one enabled entry from the external regimen config.
type ExternalEntry struct {
	ID       string
	Name     string
	Detail   string
	Type     models.ItemType
	Times    []string // HH:MM, one exact window each
	Weekdays []time.Weekday
}

// ConfigSnapshot is the reconciler's view of the external config at one point
// in time.
type ConfigSnapshot struct {
	Entries    []ExternalEntry
	Trackables map[models.ItemType]bool
}

// Notifier is told about catalog changes so reminders can be rescheduled.
// Fire-and-forget: failures are logged, never propagated.
type Notifier interface {
	CatalogChanged(patientID string) error
}

// Engine owns the ensure-schedule pipeline: reconcile the catalog with the
// external config, expand plan items into dated instances, reap orphans,
// derive time-driven statuses, and compose the day's timeline.
type Engine struct {
	store    Store
	config   ConfigSource
	notifier Notifier
	now      func() time.Time
	grace    int // fallback when settings carry no grace period

	mu    sync.Mutex
	locks map[string]*dateLock
}

// dateLock serializes work on one (patientID, date) key. Entries are
// reference counted so the map shrinks back once the last holder releases.
type dateLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Engine)

// WithClock overrides the wall clock. Tests use this to pin "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithConfigSource attaches the external regimen config for reconciliation.
func WithConfigSource(src ConfigSource) Option {
	return func(e *Engine) { e.config = src }
}

// WithNotifier attaches the reminder rescheduler.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithGracePeriod overrides the fallback grace period in minutes.
func WithGracePeriod(minutes int) Option {
	return func(e *Engine) { e.grace = minutes }
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
		grace: constants.DefaultGracePeriodMin,
		locks: make(map[string]*dateLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// acquireLock serializes all work on one (patientID, date). Different dates
// and patients proceed in parallel; two overlapping calls for the same key
// would otherwise both observe "no instance" and double-write. The returned
// release func must be called exactly once.
func (e *Engine) acquireLock(patientID, date string) func() {
	key := patientID + "|" + date
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &dateLock{}
		e.locks[key] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, key)
		}
		e.mu.Unlock()
	}
}

// graceMinutes resolves the effective grace period, preferring settings.
func (e *Engine) graceMinutes() int {
	settings, err := e.store.GetSettings()
	if err == nil && settings.GracePeriodMin > 0 {
		return settings.GracePeriodMin
	}
	return e.grace
}

// EnsureSchedule runs the full pipeline for one (patientID, date) and returns
// the composed timeline. Safe to call from any trigger, any number of times.
func (e *Engine) EnsureSchedule(patientID, date string) (*models.ScheduleResult, error) {
	release := e.acquireLock(patientID, date)
	defer release()

	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, err
	}

	// One-time maintenance runs behind a persisted marker so the guarantee
	// survives restarts.
	if err := e.runLegacyCleanup(patientID, date); err != nil {
		logger.Warn("legacy cleanup failed", "err", err)
	}

	// Reconciliation is best-effort: a broken config source must not stop
	// generation from the catalog as it stands.
	if changed, err := e.syncCatalogWithConfig(patientID); err != nil {
		logger.Warn("catalog reconciliation failed, generating from prior state", "err", err)
	} else if changed {
		e.notifyCatalogChanged(patientID)
	}

	instances, err := e.ensureInstancesLocked(patientID, date)
	if err != nil {
		return nil, fmt.Errorf("instance generation for %s: %w", date, err)
	}

	// Reaping is best-effort as well.
	if removed, err := e.reapStale(patientID, date); err != nil {
		logger.Warn("stale instance reap failed", "err", err)
	} else if removed > 0 {
		logger.Info("reaped stale instances", "date", date, "count", removed)
		instances, err = e.store.ListInstances(patientID, date)
		if err != nil {
			return nil, fmt.Errorf("reloading instances for %s: %w", date, err)
		}
	}

	items, err := e.activeItemIndex(patientID)
	if err != nil {
		return nil, err
	}

	overrides, err := e.store.ListOverrides(patientID, date)
	if err != nil {
		return nil, fmt.Errorf("loading overrides for %s: %w", date, err)
	}

	statuses, err := e.deriveStatuses(patientID, date, instances, overrides, items)
	if err != nil {
		return nil, err
	}

	appts, err := e.store.ListAppointments(patientID, date)
	if err != nil {
		return nil, fmt.Errorf("loading appointments for %s: %w", date, err)
	}

	return e.composeSchedule(patientID, date, instances, statuses, items, appts), nil
}

// EnsureInstances expands the catalog into instances for the date and returns
// the full set, sorted by scheduled time. Idempotent.
func (e *Engine) EnsureInstances(patientID, date string) ([]models.DailyInstance, error) {
	release := e.acquireLock(patientID, date)
	defer release()
	return e.ensureInstancesLocked(patientID, date)
}

// Reconcile syncs the catalog with the external config outside the daily
// pipeline (the `sync` command). Returns whether anything changed.
func (e *Engine) Reconcile(patientID string) (bool, error) {
	changed, err := e.syncCatalogWithConfig(patientID)
	if err != nil {
		return false, err
	}
	if changed {
		e.notifyCatalogChanged(patientID)
	}
	return changed, nil
}

// Complete marks an instance completed, recording the completion log entry.
// Terminal instances are left untouched.
func (e *Engine) Complete(patientID, date, instanceID, logEntryID string) error {
	return e.store.UpdateInstanceStatus(patientID, date, instanceID, models.InstanceCompleted, logEntryID)
}

// Skip marks an instance skipped.
func (e *Engine) Skip(patientID, date, instanceID string) error {
	return e.store.UpdateInstanceStatus(patientID, date, instanceID, models.InstanceSkipped, "")
}

// Snooze suppresses an (item, window) pair for the given number of minutes
// from now. The stored instance stays pending; the snooze is presentation
// state only.
func (e *Engine) Snooze(patientID, date, itemID, windowID string, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("snooze duration must be positive")
	}
	o := models.Override{
		PatientID: patientID,
		Date:      date,
		ItemID:    itemID,
		WindowID:  windowID,
		UntilMin:  timeutil.MinuteOfDay(e.now()) + minutes,
	}
	return e.store.SaveOverride(o)
}

func (e *Engine) notifyCatalogChanged(patientID string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.CatalogChanged(patientID); err != nil {
		logger.Warn("notification reschedule failed", "err", err)
	}
}

// activeItemIndex returns the active plan's items (active and inactive, so
// instances of deactivated items can still resolve their windows), keyed by id.
func (e *Engine) activeItemIndex(patientID string) (map[string]models.PlanItem, error) {
	plan, err := e.store.GetActivePlan(patientID)
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	index := make(map[string]models.PlanItem)
	if plan == nil {
		return index, nil
	}
	items, err := e.store.ListItems(plan.ID, false)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	for _, item := range items {
		index[item.ID] = item
	}
	return index, nil
}

const legacyCleanupMarker = "cleanup-orphan-windows-v1"

// runLegacyCleanup removes instances whose window id no longer exists on the
// originating item. Older versions regenerated windows with fresh ids on
// every edit, stranding instances under dead window ids. Runs exactly once
// per store.
func (e *Engine) runLegacyCleanup(patientID, date string) error {
	done, err := e.store.HasMarker(legacyCleanupMarker)
	if err != nil || done {
		return err
	}

	items, err := e.activeItemIndex(patientID)
	if err != nil {
		return err
	}
	instances, err := e.store.ListInstances(patientID, date)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		item, ok := items[inst.ItemID]
		if !ok {
			// Orphaned by item removal; the reaper handles these.
			continue
		}
		if _, ok := item.Window(inst.WindowID); ok {
			continue
		}
		if inst.Status.Terminal() {
			continue
		}
		if err := e.store.UpdateInstanceStatus(patientID, date, inst.ID, models.InstanceSkipped, ""); err != nil {
			return err
		}
		logger.Debug("retired instance with dead window id", "instance", inst.ID, "window", inst.WindowID)
	}

	return e.store.SetMarker(legacyCleanupMarker)
}
