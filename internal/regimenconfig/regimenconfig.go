package regimenconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/engine"
	"github.com/ysorallc-cloud/embermate-v5.1-sub004/internal/models"
)

// Medication is one entry in the user-editable regimen file.
type Medication struct {
	ID     string   `mapstructure:"id"`
	Name   string   `mapstructure:"name"`
	Dosage string   `mapstructure:"dosage"`
	Times  []string `mapstructure:"times"`
	Days   []string `mapstructure:"days"`
}

// File is the on-disk shape of the regimen config.
type File struct {
	Medications []Medication    `mapstructure:"medications"`
	Trackables  map[string]bool `mapstructure:"trackables"`
}

// Source reads the regimen config file on demand and exposes it as an
// engine.ConfigSource. The file is user-edited, so every Snapshot re-reads it
// rather than caching.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the config file location.
func (s *Source) Path() string {
	return s.path
}

// Snapshot loads and normalizes the regimen config. A missing file is not an
// error: it means the user manages the catalog by hand, so the snapshot is
// empty.
func (s *Source) Snapshot() (engine.ConfigSnapshot, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return engine.ConfigSnapshot{}, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return engine.ConfigSnapshot{}, fmt.Errorf("reading regimen config: %w", err)
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return engine.ConfigSnapshot{}, fmt.Errorf("parsing regimen config: %w", err)
	}

	return snapshotFromFile(file)
}

func snapshotFromFile(file File) (engine.ConfigSnapshot, error) {
	snapshot := engine.ConfigSnapshot{
		Trackables: make(map[models.ItemType]bool),
	}

	for _, med := range file.Medications {
		if strings.TrimSpace(med.Name) == "" {
			continue
		}
		days, err := parseWeekdays(med.Days)
		if err != nil {
			return engine.ConfigSnapshot{}, fmt.Errorf("medication %q: %w", med.Name, err)
		}
		snapshot.Entries = append(snapshot.Entries, engine.ExternalEntry{
			ID:       med.ID,
			Name:     med.Name,
			Detail:   med.Dosage,
			Type:     models.ItemTypeMedication,
			Times:    med.Times,
			Weekdays: days,
		})
	}

	for key, enabled := range file.Trackables {
		itemType := models.ItemType(strings.ToLower(strings.TrimSpace(key)))
		if !itemType.Valid() {
			return engine.ConfigSnapshot{}, fmt.Errorf("unknown trackable category %q", key)
		}
		snapshot.Trackables[itemType] = enabled
		if entry, ok := trackableEntry(itemType); ok && enabled {
			snapshot.Entries = append(snapshot.Entries, entry)
		}
	}

	return snapshot, nil
}

// trackableEntry maps an enabled trackable category to its default catalog
// entry. Wellness is handled separately by the reconciler's canonical pair.
func trackableEntry(itemType models.ItemType) (engine.ExternalEntry, bool) {
	switch itemType {
	case models.ItemTypeVitals:
		return engine.ExternalEntry{
			ID:    "trackable:vitals",
			Name:  "Vitals check",
			Type:  models.ItemTypeVitals,
			Times: []string{"09:00"},
		}, true
	case models.ItemTypeNutrition:
		return engine.ExternalEntry{
			ID:    "trackable:nutrition",
			Name:  "Meal log",
			Type:  models.ItemTypeNutrition,
			Times: []string{"12:30"},
		}, true
	default:
		return engine.ExternalEntry{}, false
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseWeekdays accepts day names ("mon", "monday") or numbers 0-6 with
// Sunday as 0.
func parseWeekdays(days []string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, raw := range days {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if wd, ok := weekdayNames[key]; ok {
			out = append(out, wd)
			continue
		}
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", raw)
		}
		out = append(out, time.Weekday(n))
	}
	return out, nil
}
