package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
)

type note struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *note) GetID() string            { return n.Id }
func (n *note) SetID(id string)          { n.Id = id }
func (n *note) GetCreatedAt() time.Time  { return n.CreatedAt }
func (n *note) SetCreatedAt(t time.Time) { n.CreatedAt = t }
func (n *note) SetUpdatedAt(t time.Time) { n.UpdatedAt = t }
func (n *note) Validate() error {
	if n.Text == "" {
		return utils.NewValidationError("text", "is required")
	}
	return nil
}

const testCollection = "notes"

func newJSONStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte(`{"storage_mode": "json"}`), 0o644); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, dir
}

func TestStore_UpsertRoundTrip(t *testing.T) {
	store, _ := newJSONStore(t)

	created, err := Upsert[note](store, testCollection, &note{Text: "first"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.Id == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id and created_at must be stamped: %+v", created)
	}

	got, err := Get[note](store, testCollection, created.Id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "first" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := Get[note](store, testCollection, "missing"); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
	if err := Delete(store, testCollection, "missing"); err != utils.ErrorRecordNotFound {
		t.Fatalf("expected ErrorRecordNotFound on delete, got %v", err)
	}

	if _, err := Upsert[note](store, testCollection, &note{}); !utils.IsValidationError(err) {
		t.Fatalf("invalid record must be rejected before any write, got %v", err)
	}
}

func TestStore_BackupFallbackOnCorruptPrimary(t *testing.T) {
	store, _ := newJSONStore(t)

	first, err := Upsert[note](store, testCollection, &note{Text: "first"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := Upsert[note](store, testCollection, &note{Text: "second"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	primary := store.strategy.dataFile(testCollection)
	if err := os.WriteFile(primary, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	// The latest snapshot predates the second write, so recovery yields the
	// older state: first present, second gone.
	if _, err := Get[note](store, testCollection, first.Id); err != nil {
		t.Fatalf("expected recovery from backup, got %v", err)
	}
	if _, err := Get[note](store, testCollection, second.Id); err != utils.ErrorRecordNotFound {
		t.Fatalf("recovered state must predate the last write, got %v", err)
	}
}

func TestStore_CorruptionErrorWhenNoBackup(t *testing.T) {
	store, _ := newJSONStore(t)

	// A single write leaves no prior file to snapshot, so there is no backup.
	if _, err := Upsert[note](store, testCollection, &note{Text: "only"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	primary := store.strategy.dataFile(testCollection)
	if err := os.WriteFile(primary, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	_, err := List[note](store, testCollection)
	var corruption *utils.StorageCorruptionError
	if !errors.As(err, &corruption) {
		t.Fatalf("expected StorageCorruptionError, got %v", err)
	}
	if corruption.Collection != testCollection {
		t.Fatalf("error must name the collection, got %q", corruption.Collection)
	}
}

// tornWritePersister simulates a crash mid-write: the backup snapshot has
// already been taken, then the primary ends up unreadable.
type tornWritePersister struct {
	persister
}

func (p *tornWritePersister) save(collection string, records map[string]json.RawMessage) error {
	if err := os.WriteFile(p.dataFile(collection), []byte("{torn"), 0o644); err != nil {
		return err
	}
	return errors.New("disk full")
}

func TestStore_FailedWriteRecoversPriorState(t *testing.T) {
	store, _ := newJSONStore(t)

	first, err := Upsert[note](store, testCollection, &note{Text: "first"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	healthy := store.strategy
	store.strategy = &tornWritePersister{persister: healthy}
	if _, err := Upsert[note](store, testCollection, &note{Text: "second"}); err == nil {
		t.Fatalf("torn write must surface an error")
	}
	store.strategy = healthy

	notes, err := List[note](store, testCollection)
	if err != nil {
		t.Fatalf("expected recovery from the pre-write snapshot, got %v", err)
	}
	if len(notes) != 1 || notes[0].Id != first.Id {
		t.Fatalf("recovered state must equal the pre-write state: %+v", notes)
	}
}

func TestStore_RepeatedTornWritesKeepLastGoodBackup(t *testing.T) {
	store, _ := newJSONStore(t)

	first, err := Upsert[note](store, testCollection, &note{Text: "first"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Two failed writes in a row: the torn primary left by the first must
	// not be snapshotted over the good backup during the second.
	healthy := store.strategy
	store.strategy = &tornWritePersister{persister: healthy}
	if _, err := Upsert[note](store, testCollection, &note{Text: "second"}); err == nil {
		t.Fatalf("torn write must surface an error")
	}
	if _, err := Upsert[note](store, testCollection, &note{Text: "third"}); err == nil {
		t.Fatalf("second torn write must surface an error")
	}
	store.strategy = healthy

	notes, err := List[note](store, testCollection)
	if err != nil {
		t.Fatalf("expected recovery from the pre-write snapshot, got %v", err)
	}
	if len(notes) != 1 || notes[0].Id != first.Id {
		t.Fatalf("recovered state must equal the pre-write state: %+v", notes)
	}
}

func TestStore_UpdateSettingsReturnsDetachedCounters(t *testing.T) {
	store, _ := newJSONStore(t)

	if number, _ := store.NextInvoiceNumber(); number != "INV-0001" {
		t.Fatalf("expected INV-0001, got %s", number)
	}

	currency := "EUR"
	settings, err := store.UpdateSettings(&UpdateSettingsInput{Currency: &currency})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	settings.InvoiceCounters["INV"] = 99

	if number, _ := store.NextInvoiceNumber(); number != "INV-0002" {
		t.Fatalf("mutating the returned counters must not affect the store, got %s", number)
	}
}

func TestStore_InvoiceNumbersSurviveReopen(t *testing.T) {
	store, dir := newJSONStore(t)

	for i, expected := range []string{"INV-0001", "INV-0002"} {
		number, err := store.NextInvoiceNumber()
		if err != nil {
			t.Fatalf("NextInvoiceNumber %d: %v", i, err)
		}
		if number != expected {
			t.Fatalf("expected %s, got %s", expected, number)
		}
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	number, err := reopened.NextInvoiceNumber()
	if err != nil {
		t.Fatalf("NextInvoiceNumber after reopen: %v", err)
	}
	if number != "INV-0003" {
		t.Fatalf("numbers must continue across restarts, got %s", number)
	}
}

func TestStore_CountersArePerPrefix(t *testing.T) {
	store, _ := newJSONStore(t)

	if number, _ := store.NextInvoiceNumber(); number != "INV-0001" {
		t.Fatalf("expected INV-0001, got %s", number)
	}

	prefix := "EST"
	if _, err := store.UpdateSettings(&UpdateSettingsInput{InvoiceNumberPrefix: &prefix}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if number, _ := store.NextInvoiceNumber(); number != "EST-0001" {
		t.Fatalf("new prefix must start its own sequence, got %s", number)
	}

	prefix = "INV"
	if _, err := store.UpdateSettings(&UpdateSettingsInput{InvoiceNumberPrefix: &prefix}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if number, _ := store.NextInvoiceNumber(); number != "INV-0002" {
		t.Fatalf("switching back must resume the old sequence, got %s", number)
	}
}

func TestStore_StorageModeMigrationIsLossless(t *testing.T) {
	store, _ := newJSONStore(t)

	var ids []string
	for _, text := range []string{"alpha", "beta", "gamma"} {
		rec, err := Upsert[note](store, CollectionInventory, &note{Text: text})
		if err != nil {
			t.Fatalf("upsert %s: %v", text, err)
		}
		ids = append(ids, rec.Id)
	}

	mode := StorageModeTable
	if _, err := store.UpdateSettings(&UpdateSettingsInput{StorageMode: &mode}); err != nil {
		t.Fatalf("migrate to table: %v", err)
	}
	if store.strategy.mode() != StorageModeTable {
		t.Fatalf("strategy must switch after migration")
	}
	for _, id := range ids {
		if _, err := Get[note](store, CollectionInventory, id); err != nil {
			t.Fatalf("record %s lost in json->table migration: %v", id, err)
		}
	}

	mode = StorageModeJSON
	if _, err := store.UpdateSettings(&UpdateSettingsInput{StorageMode: &mode}); err != nil {
		t.Fatalf("migrate back to json: %v", err)
	}
	for _, id := range ids {
		if _, err := Get[note](store, CollectionInventory, id); err != nil {
			t.Fatalf("record %s lost in table->json migration: %v", id, err)
		}
	}
}

func TestStore_SettingsSelfHeal(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte(`{"invoice_number_prefix": "EST"}`), 0o644); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	settings := store.Settings()
	if settings.InvoiceNumberPrefix != "EST" {
		t.Fatalf("persisted keys must survive, got %q", settings.InvoiceNumberPrefix)
	}
	if settings.Currency != "USD" || settings.StorageMode != StorageModeTable {
		t.Fatalf("missing keys must heal to defaults: %+v", settings)
	}

	raw, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var healed Settings
	if err := json.Unmarshal(raw, &healed); err != nil {
		t.Fatalf("settings file must be rewritten as valid JSON: %v", err)
	}
	if healed.Currency != "USD" {
		t.Fatalf("healed file must carry the defaults, got %q", healed.Currency)
	}
}

func TestStore_CorruptSettingsRefusesToOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	_, err := Open(dir)
	var corruption *utils.StorageCorruptionError
	if !errors.As(err, &corruption) {
		t.Fatalf("expected StorageCorruptionError, got %v", err)
	}
}
