package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T, content string) (*Manager, string) {
	t.Helper()
	dataPath := filepath.Join(t.TempDir(), "embermate.json")
	if err := os.WriteFile(dataPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing data file: %v", err)
	}
	return NewManager(dataPath), dataPath
}

func TestCreate_WritesTimestampedBackup(t *testing.T) {
	mgr, _ := newTestManager(t, `{"version":1}`)

	path, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, BackupFilePrefix) || !strings.HasSuffix(name, ".json") {
		t.Errorf("unexpected backup name %q", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(data) != `{"version":1}` {
		t.Errorf("backup content = %q", data)
	}
}

func TestCreate_MissingDataFile(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := mgr.Create(); err == nil {
		t.Error("Create without a data file should fail")
	}
}

func TestList_NewestFirst(t *testing.T) {
	mgr, _ := newTestManager(t, `{}`)
	if err := os.MkdirAll(mgr.BackupDir(), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	stamps := []string{"20260101-080000", "20260301-080000", "20260201-080000"}
	for _, stamp := range stamps {
		name := BackupFilePrefix + stamp + ".json"
		if err := os.WriteFile(filepath.Join(mgr.BackupDir(), name), []byte("{}"), 0600); err != nil {
			t.Fatalf("writing fake backup: %v", err)
		}
	}
	// Files that do not look like backups are ignored.
	if err := os.WriteFile(filepath.Join(mgr.BackupDir(), "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups out of order: %v before %v", backups[i-1].Timestamp, backups[i].Timestamp)
		}
	}
}

func TestList_EmptyWithoutBackupDir(t *testing.T) {
	mgr, _ := newTestManager(t, `{}`)

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %d", len(backups))
	}
}

func TestCreate_RotatesOldBackups(t *testing.T) {
	mgr, _ := newTestManager(t, `{}`)
	if err := os.MkdirAll(mgr.BackupDir(), 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	// Seed more than the retention limit of old backups.
	for i := 0; i < MaxBackups+3; i++ {
		name := fmt.Sprintf("%s2025%02d%02d-080000.json", BackupFilePrefix, i/28+1, i%28+1)
		if err := os.WriteFile(filepath.Join(mgr.BackupDir(), name), []byte("{}"), 0600); err != nil {
			t.Fatalf("writing fake backup: %v", err)
		}
	}

	created, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(backups) != MaxBackups {
		t.Errorf("expected rotation down to %d backups, got %d", MaxBackups, len(backups))
	}
	// The newest backup is the one just created.
	if backups[0].Path != created {
		t.Errorf("newest backup = %s, want %s", backups[0].Path, created)
	}
}

func TestRestore_ReplacesDataFile(t *testing.T) {
	mgr, dataPath := newTestManager(t, `{"state":"original"}`)

	backupPath, err := mgr.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := os.WriteFile(dataPath, []byte(`{"state":"corrupted"}`), 0600); err != nil {
		t.Fatalf("mutating data file: %v", err)
	}

	if err := mgr.Restore(backupPath); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(data) != `{"state":"original"}` {
		t.Errorf("restored content = %q", data)
	}

	// The pre-restore state was snapshotted alongside the original backup.
	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, b := range backups {
		snap, err := os.ReadFile(b.Path)
		if err != nil {
			t.Fatalf("reading %s: %v", b.Path, err)
		}
		if string(snap) == `{"state":"corrupted"}` {
			found = true
		}
	}
	if !found {
		t.Error("restore should snapshot the current data first")
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	mgr, _ := newTestManager(t, `{}`)
	if err := mgr.Restore(filepath.Join(mgr.BackupDir(), "nope.json")); err == nil {
		t.Error("restoring a missing backup should fail")
	}
}
