package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Provider on top of sqlite or postgres. Queries are
// written with ? placeholders and rebound per driver.
type SQLStore struct {
	driver string
	dsn    string
	db     *sqlx.DB
}

// NewSQLiteStore creates a store backed by a local sqlite file.
func NewSQLiteStore(path string) *SQLStore {
	return &SQLStore{driver: DriverSQLite, dsn: path}
}

// NewPostgresStore creates a store backed by a postgres connection string.
func NewPostgresStore(connStr string) *SQLStore {
	return &SQLStore{driver: DriverPostgres, dsn: connStr}
}

func (s *SQLStore) Init() error {
	if s.driver == DriverSQLite {
		dir := filepath.Dir(s.dsn)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Seed default settings on first run.
	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(defaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *SQLStore) Load() error {
	if s.db != nil {
		return nil
	}

	if s.driver == DriverSQLite {
		if _, err := os.Stat(s.dsn); os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'embermate init' first")
		}
	}

	if err := s.open(); err != nil {
		return err
	}

	return s.runMigrations()
}

func (s *SQLStore) open() error {
	db, err := sqlx.Open(s.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if s.driver == DriverSQLite {
		// Serialize writers; the engine holds its own per-day lock but other
		// processes may share the file.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return fmt.Errorf("enabling WAL mode: %w", err)
		}
	}
	s.db = db
	return nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) runMigrations() error {
	currentVersion, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 for a fresh
// database.
func (s *SQLStore) SchemaVersion() (int, error) {
	var exists int
	var probe string
	if s.driver == DriverPostgres {
		probe = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'schema_version'"
	} else {
		probe = "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'"
	}
	if err := s.db.Get(&exists, probe); err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	if err := s.db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func defaultSettings() Settings {
	return Settings{
		PatientID:            "default",
		DayStart:             "07:00",
		DayEnd:               "22:00",
		GracePeriodMin:       120,
		NotificationsEnabled: true,
		Timezone:             "Local",
	}
}

func (s *SQLStore) GetSettings() (Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	settings := Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case "patient_id":
			settings.PatientID = value
		case "patient_name":
			settings.PatientName = value
		case "day_start":
			settings.DayStart = value
		case "day_end":
			settings.DayEnd = value
		case "grace_period_min":
			if v, err := strconv.Atoi(value); err == nil {
				settings.GracePeriodMin = v
			}
		case "notifications_enabled":
			settings.NotificationsEnabled = value == "true"
		case "timezone":
			settings.Timezone = value
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	if count == 0 {
		return Settings{}, fmt.Errorf("settings not found")
	}

	return settings, nil
}

func (s *SQLStore) SaveSettings(settings Settings) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := s.db.Rebind(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	stmt, err := tx.Preparex(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := [][2]string{
		{"patient_id", settings.PatientID},
		{"patient_name", settings.PatientName},
		{"day_start", settings.DayStart},
		{"day_end", settings.DayEnd},
		{"grace_period_min", strconv.Itoa(settings.GracePeriodMin)},
		{"notifications_enabled", strconv.FormatBool(settings.NotificationsEnabled)},
		{"timezone", settings.Timezone},
	}
	for _, kv := range pairs {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLStore) GetActivePlan(patientID string) (*models.CarePlan, error) {
	query := s.db.Rebind(`
		SELECT id, patient_id, name, active, created_at
		FROM care_plans WHERE patient_id = ? AND active = 1
		ORDER BY created_at LIMIT 1`)
	row := s.db.QueryRow(query, patientID)

	var p models.CarePlan
	var active int
	err := row.Scan(&p.ID, &p.PatientID, &p.Name, &active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active plan: %w", err)
	}
	p.Active = active != 0
	return &p, nil
}

func (s *SQLStore) SavePlan(plan models.CarePlan) error {
	query := s.db.Rebind(`
		INSERT INTO care_plans (id, patient_id, name, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active`)
	_, err := s.db.Exec(query,
		plan.ID, plan.PatientID, plan.Name, boolToInt(plan.Active), plan.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving plan %s: %w", plan.ID, err)
	}
	return nil
}

const itemColumns = `id, plan_id, external_id, item_type, name, detail, priority,
	active, frequency, weekdays, skip_dates, windows, created_at, updated_at`

func (s *SQLStore) ListItems(planID string, activeOnly bool) ([]models.PlanItem, error) {
	query := "SELECT " + itemColumns + " FROM plan_items WHERE plan_id = ?"
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY priority, name"

	rows, err := s.db.Query(s.db.Rebind(query), planID)
	if err != nil {
		return nil, fmt.Errorf("querying plan items: %w", err)
	}
	defer rows.Close()

	var items []models.PlanItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLStore) GetItem(itemID string) (models.PlanItem, error) {
	query := s.db.Rebind("SELECT " + itemColumns + " FROM plan_items WHERE id = ?")
	rows, err := s.db.Query(query, itemID)
	if err != nil {
		return models.PlanItem{}, fmt.Errorf("getting item %s: %w", itemID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.PlanItem{}, err
		}
		return models.PlanItem{}, ErrNotFound
	}
	return scanItem(rows)
}

func (s *SQLStore) UpsertItem(item models.PlanItem) error {
	weekdays, err := json.Marshal(item.Schedule.Weekdays)
	if err != nil {
		return fmt.Errorf("marshaling weekdays: %w", err)
	}
	skipDates, err := json.Marshal(item.Schedule.SkipDates)
	if err != nil {
		return fmt.Errorf("marshaling skip dates: %w", err)
	}
	windows, err := json.Marshal(item.Schedule.Windows)
	if err != nil {
		return fmt.Errorf("marshaling windows: %w", err)
	}

	query := s.db.Rebind(`
		INSERT INTO plan_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			external_id = excluded.external_id,
			item_type = excluded.item_type,
			name = excluded.name,
			detail = excluded.detail,
			priority = excluded.priority,
			active = excluded.active,
			frequency = excluded.frequency,
			weekdays = excluded.weekdays,
			skip_dates = excluded.skip_dates,
			windows = excluded.windows,
			updated_at = excluded.updated_at`)
	_, err = s.db.Exec(query,
		item.ID, item.PlanID, item.ExternalID, string(item.Type), item.Name, item.Detail,
		item.Priority, boolToInt(item.Active), string(item.Schedule.Frequency),
		string(weekdays), string(skipDates), string(windows),
		item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}
	return nil
}

func (s *SQLStore) DeleteItem(planID, itemID string) error {
	query := s.db.Rebind("DELETE FROM plan_items WHERE plan_id = ? AND id = ?")
	res, err := s.db.Exec(query, planID, itemID)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", itemID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const instanceColumns = `id, patient_id, date, item_id, window_id, scheduled_min,
	status, log_entry_id, snapshot, created_at`

func (s *SQLStore) ListInstances(patientID, date string) ([]models.DailyInstance, error) {
	query := s.db.Rebind("SELECT " + instanceColumns + ` FROM daily_instances
		WHERE patient_id = ? AND date = ? ORDER BY scheduled_min, created_at`)
	rows, err := s.db.Query(query, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("querying instances: %w", err)
	}
	defer rows.Close()

	var instances []models.DailyInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// UpsertInstances inserts the batch, leaving any row that already exists for
// the same (patient, date, item, window) key untouched. Existing instances are
// never rewritten so logged completions cannot be clobbered.
func (s *SQLStore) UpsertInstances(patientID, date string, batch []models.DailyInstance) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(`
		INSERT INTO daily_instances (` + instanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (patient_id, date, item_id, window_id) DO NOTHING`)
	stmt, err := tx.Preparex(query)
	if err != nil {
		return fmt.Errorf("preparing instance upsert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range batch {
		snapshot, err := json.Marshal(inst.Snapshot)
		if err != nil {
			return fmt.Errorf("marshaling snapshot for %s: %w", inst.ID, err)
		}
		_, err = stmt.Exec(
			inst.ID, patientID, date, inst.ItemID, inst.WindowID, inst.ScheduledMin,
			string(inst.Status), inst.LogEntryID, string(snapshot), inst.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("upserting instance %s: %w", inst.ID, err)
		}
	}

	return tx.Commit()
}

// UpdateInstanceStatus advances an instance's status. Terminal statuses
// (completed, skipped) are never overwritten, and an empty logEntryID leaves
// any stored log reference in place.
func (s *SQLStore) UpdateInstanceStatus(patientID, date, instanceID string, status models.InstanceStatus, logEntryID string) error {
	query := s.db.Rebind(`
		UPDATE daily_instances
		SET status = ?,
		    log_entry_id = CASE WHEN ? = '' THEN log_entry_id ELSE ? END
		WHERE id = ? AND patient_id = ? AND date = ?
		  AND status NOT IN ('completed', 'skipped')`)
	res, err := s.db.Exec(query, string(status), logEntryID, logEntryID, instanceID, patientID, date)
	if err != nil {
		return fmt.Errorf("updating instance %s: %w", instanceID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the instance does not exist or it already reached a terminal
		// status; distinguish so callers can report missing ids.
		var count int
		check := s.db.Rebind("SELECT COUNT(*) FROM daily_instances WHERE id = ? AND patient_id = ? AND date = ?")
		if err := s.db.Get(&count, check, instanceID, patientID, date); err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// RemoveStaleInstances deletes instances for the date whose originating item
// is no longer part of the catalog at all.
func (s *SQLStore) RemoveStaleInstances(patientID, date string, validItemIDs []string) (int, error) {
	var query string
	var args []interface{}
	var err error

	if len(validItemIDs) == 0 {
		query = s.db.Rebind("DELETE FROM daily_instances WHERE patient_id = ? AND date = ?")
		args = []interface{}{patientID, date}
	} else {
		query, args, err = sqlx.In(
			"DELETE FROM daily_instances WHERE patient_id = ? AND date = ? AND item_id NOT IN (?)",
			patientID, date, validItemIDs)
		if err != nil {
			return 0, fmt.Errorf("building stale-instance query: %w", err)
		}
		query = s.db.Rebind(query)
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale instances: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLStore) ListOverrides(patientID, date string) ([]models.Override, error) {
	query := s.db.Rebind(`
		SELECT patient_id, date, item_id, window_id, until_min
		FROM overrides WHERE patient_id = ? AND date = ?`)
	rows, err := s.db.Query(query, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("querying overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.Override
	for rows.Next() {
		var o models.Override
		if err := rows.Scan(&o.PatientID, &o.Date, &o.ItemID, &o.WindowID, &o.UntilMin); err != nil {
			return nil, fmt.Errorf("scanning override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (s *SQLStore) SaveOverride(o models.Override) error {
	query := s.db.Rebind(`
		INSERT INTO overrides (patient_id, date, item_id, window_id, until_min)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (patient_id, date, item_id, window_id) DO UPDATE SET
			until_min = excluded.until_min`)
	_, err := s.db.Exec(query, o.PatientID, o.Date, o.ItemID, o.WindowID, o.UntilMin)
	if err != nil {
		return fmt.Errorf("saving override: %w", err)
	}
	return nil
}

const appointmentColumns = `id, patient_id, date, start_min, end_min, title,
	location, completed, cancelled, created_at`

func (s *SQLStore) ListAppointments(patientID, date string) ([]models.Appointment, error) {
	query := s.db.Rebind("SELECT " + appointmentColumns + ` FROM appointments
		WHERE patient_id = ? AND date = ? ORDER BY start_min`)
	rows, err := s.db.Query(query, patientID, date)
	if err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (s *SQLStore) GetAppointment(id string) (models.Appointment, error) {
	query := s.db.Rebind("SELECT " + appointmentColumns + " FROM appointments WHERE id = ?")
	rows, err := s.db.Query(query, id)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("getting appointment %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Appointment{}, err
		}
		return models.Appointment{}, ErrNotFound
	}
	return scanAppointment(rows)
}

func (s *SQLStore) UpsertAppointment(a models.Appointment) error {
	query := s.db.Rebind(`
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			date = excluded.date,
			start_min = excluded.start_min,
			end_min = excluded.end_min,
			title = excluded.title,
			location = excluded.location,
			completed = excluded.completed,
			cancelled = excluded.cancelled`)
	_, err := s.db.Exec(query,
		a.ID, a.PatientID, a.Date, a.StartMin, a.EndMin, a.Title, a.Location,
		boolToInt(a.Completed), boolToInt(a.Cancelled), a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upserting appointment %s: %w", a.ID, err)
	}
	return nil
}

func (s *SQLStore) HasMarker(name string) (bool, error) {
	var count int
	query := s.db.Rebind("SELECT COUNT(*) FROM markers WHERE name = ?")
	if err := s.db.Get(&count, query, name); err != nil {
		return false, fmt.Errorf("checking marker %s: %w", name, err)
	}
	return count > 0, nil
}

func (s *SQLStore) SetMarker(name string) error {
	query := s.db.Rebind(`
		INSERT INTO markers (name, created_at) VALUES (?, ?)
		ON CONFLICT (name) DO NOTHING`)
	if _, err := s.db.Exec(query, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("setting marker %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) GetConfigPath() string {
	return s.dsn
}

// GetDB exposes the underlying handle for diagnostics.
func (s *SQLStore) GetDB() *sqlx.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (models.PlanItem, error) {
	var (
		item      models.PlanItem
		itemType  string
		frequency string
		active    int
		weekdays  string
		skipDates string
		windows   string
	)

	err := row.Scan(
		&item.ID, &item.PlanID, &item.ExternalID, &itemType, &item.Name, &item.Detail,
		&item.Priority, &active, &frequency, &weekdays, &skipDates, &windows,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return models.PlanItem{}, fmt.Errorf("scanning plan item: %w", err)
	}

	item.Type = models.ItemType(itemType)
	item.Active = active != 0
	item.Schedule.Frequency = models.Frequency(frequency)

	if err := json.Unmarshal([]byte(weekdays), &item.Schedule.Weekdays); err != nil {
		return models.PlanItem{}, fmt.Errorf("unmarshaling weekdays: %w", err)
	}
	if err := json.Unmarshal([]byte(skipDates), &item.Schedule.SkipDates); err != nil {
		return models.PlanItem{}, fmt.Errorf("unmarshaling skip dates: %w", err)
	}
	if err := json.Unmarshal([]byte(windows), &item.Schedule.Windows); err != nil {
		return models.PlanItem{}, fmt.Errorf("unmarshaling windows: %w", err)
	}

	return item, nil
}

func scanInstance(row rowScanner) (models.DailyInstance, error) {
	var (
		inst     models.DailyInstance
		status   string
		snapshot string
	)

	err := row.Scan(
		&inst.ID, &inst.PatientID, &inst.Date, &inst.ItemID, &inst.WindowID,
		&inst.ScheduledMin, &status, &inst.LogEntryID, &snapshot, &inst.CreatedAt)
	if err != nil {
		return models.DailyInstance{}, fmt.Errorf("scanning instance: %w", err)
	}

	inst.Status = models.InstanceStatus(status)
	if err := json.Unmarshal([]byte(snapshot), &inst.Snapshot); err != nil {
		return models.DailyInstance{}, fmt.Errorf("unmarshaling snapshot: %w", err)
	}

	return inst, nil
}

func scanAppointment(row rowScanner) (models.Appointment, error) {
	var (
		a         models.Appointment
		completed int
		cancelled int
	)

	err := row.Scan(
		&a.ID, &a.PatientID, &a.Date, &a.StartMin, &a.EndMin, &a.Title,
		&a.Location, &completed, &cancelled, &a.CreatedAt)
	if err != nil {
		return models.Appointment{}, fmt.Errorf("scanning appointment: %w", err)
	}

	a.Completed = completed != 0
	a.Cancelled = cancelled != 0
	return a, nil
}

// boolToInt converts a boolean to 0 or 1 for storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
