package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/config"
	"github.com/sikhakolliwork-lavender/billing-estimate-tool/utils"
	"github.com/sirupsen/logrus"
)

const (
	CollectionInventory = "inventory"
	CollectionInvoices  = "invoices"
)

// Record is what a collection stores. Ids and timestamps are stamped by the
// store, never by the caller.
type Record interface {
	GetID() string
	SetID(id string)
	GetCreatedAt() time.Time
	SetCreatedAt(t time.Time)
	SetUpdatedAt(t time.Time)
	Validate() error
}

// Indexer is implemented by records that derive searchable state. Reindex
// runs synchronously inside every upsert so the index is never stale.
type Indexer interface {
	Reindex()
}

// RecordPtr constrains the pointer type the generic store helpers work with.
type RecordPtr[T any] interface {
	*T
	Record
}

// Store owns the durable collections. Every mutating call snapshots the
// prior state into the backup area before writing the new state, inside a
// per-collection critical section.
type Store struct {
	dir       string
	backupDir string
	logger    *logrus.Logger

	mu       sync.Mutex // settings + counters
	settings Settings

	locksMu  sync.Mutex
	locks    map[string]*sync.Mutex
	strategy persister
}

func Open(dir string) (*Store, error) {
	store := &Store{
		dir:       dir,
		backupDir: filepath.Join(dir, "backups"),
		logger:    config.GetLogger(),
		locks:     map[string]*sync.Mutex{},
	}

	if err := os.MkdirAll(store.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.loadSettings(); err != nil {
		return nil, err
	}
	store.strategy = newPersister(dir, store.settings.StorageMode)

	return store, nil
}

func (s *Store) collectionLock(collection string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[collection]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[collection] = lock
	}
	return lock
}

// readCollection loads the primary store; if it is unreadable it attempts
// the most recent backup exactly once before failing. The second return
// reports whether the primary itself was readable; writers must not snapshot
// a primary that was not.
func (s *Store) readCollection(collection string) (map[string]json.RawMessage, bool, error) {
	records, err := s.strategy.load(collection)
	if err == nil {
		return records, true, nil
	}

	attempts := []string{fmt.Sprintf("primary %s store", s.strategy.mode())}
	primary := s.strategy.dataFile(collection)

	backupPath, ok := s.latestBackup(primary)
	if !ok {
		return nil, false, &utils.StorageCorruptionError{
			Collection: collection,
			Attempts:   append(attempts, "no backup snapshot available"),
			Err:        err,
		}
	}

	attempts = append(attempts, "backup "+filepath.Base(backupPath))
	records, backupErr := s.strategy.loadFrom(backupPath)
	if backupErr != nil {
		return nil, false, &utils.StorageCorruptionError{
			Collection: collection,
			Attempts:   attempts,
			Err:        backupErr,
		}
	}

	s.logger.WithFields(logrus.Fields{
		"module":     "storage",
		"collection": collection,
		"backup":     filepath.Base(backupPath),
	}).Warn("primary store unreadable, recovered from latest backup")

	return records, false, nil
}

// writeCollection snapshots the prior primary file, then writes the new
// state. A crash between the two steps leaves the old state recoverable.
// An unreadable primary is never snapshotted: that would bury the last good
// backup under a corrupt one and break recovery on the next failed write.
func (s *Store) writeCollection(collection string, records map[string]json.RawMessage, primaryReadable bool) error {
	if primaryReadable {
		if err := s.backupFile(s.strategy.dataFile(collection)); err != nil {
			return fmt.Errorf("backup %s before write: %w", collection, err)
		}
	}
	return s.strategy.save(collection, records)
}

// Upsert assigns the id and timestamps, reindexes derived fields and writes
// through. Validation failures leave the store untouched.
func Upsert[T any, PT RecordPtr[T]](s *Store, collection string, rec PT) (PT, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	records, primaryReadable, err := s.readCollection(collection)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if rec.GetID() == "" {
		rec.SetID(uuid.NewString())
	}

	if prior, ok := records[rec.GetID()]; ok {
		var prev T
		if err := json.Unmarshal(prior, &prev); err == nil {
			rec.SetCreatedAt(PT(&prev).GetCreatedAt())
		} else {
			rec.SetCreatedAt(now)
		}
	} else {
		rec.SetCreatedAt(now)
	}
	rec.SetUpdatedAt(now)

	if indexer, ok := any(rec).(Indexer); ok {
		indexer.Reindex()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	records[rec.GetID()] = body

	if err := s.writeCollection(collection, records, primaryReadable); err != nil {
		config.LogError(s.logger, "storage", "Upsert", collection, rec.GetID(), err)
		return nil, err
	}
	return rec, nil
}

func Get[T any, PT RecordPtr[T]](s *Store, collection string, id string) (PT, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	records, _, err := s.readCollection(collection)
	if err != nil {
		return nil, err
	}
	body, ok := records[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}

	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	return PT(&rec), nil
}

// List returns every record. Ordering carries no meaning; callers sort.
func List[T any, PT RecordPtr[T]](s *Store, collection string) ([]PT, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	records, _, err := s.readCollection(collection)
	if err != nil {
		return nil, err
	}

	results := make([]PT, 0, len(records))
	for _, body := range records {
		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, err
		}
		results = append(results, PT(&rec))
	}
	return results, nil
}

func Delete(s *Store, collection string, id string) error {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	records, primaryReadable, err := s.readCollection(collection)
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return utils.ErrorRecordNotFound
	}
	delete(records, id)

	if err := s.writeCollection(collection, records, primaryReadable); err != nil {
		config.LogError(s.logger, "storage", "Delete", collection, id, err)
		return err
	}
	return nil
}

// NextInvoiceNumber atomically issues the next number for the configured
// prefix. The incremented counter is persisted before the number is
// returned, so numbers stay strictly increasing across restarts and are
// never reused even when an invoice write later fails.
func (s *Store) NextInvoiceNumber() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := s.settings.InvoiceNumberPrefix
	if prefix == "" {
		prefix = "INV"
	}
	next := s.settings.InvoiceCounters[prefix]
	if next <= 0 {
		next = 1
	}
	s.settings.InvoiceCounters[prefix] = next + 1

	if err := s.saveSettingsLocked(); err != nil {
		s.settings.InvoiceCounters[prefix] = next
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, next), nil
}

// UpdateSettings applies the non-nil fields. A storage-mode change migrates
// both collections into the new format so the formats stay losslessly
// interchangeable.
func (s *Store) UpdateSettings(input *UpdateSettingsInput) (Settings, error) {
	if err := input.validate(); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previousMode := s.settings.StorageMode

	if input.StorageMode != nil {
		s.settings.StorageMode = *input.StorageMode
	}
	if input.DefaultTaxRate != nil {
		s.settings.DefaultTaxRate = *input.DefaultTaxRate
	}
	if input.DefaultDiscountRate != nil {
		s.settings.DefaultDiscountRate = *input.DefaultDiscountRate
	}
	if input.InvoiceNumberPrefix != nil {
		s.settings.InvoiceNumberPrefix = *input.InvoiceNumberPrefix
	}
	if input.Currency != nil {
		s.settings.Currency = *input.Currency
	}
	if input.CurrencySymbol != nil {
		s.settings.CurrencySymbol = *input.CurrencySymbol
	}
	if input.BusinessInfo != nil {
		s.settings.BusinessInfo = *input.BusinessInfo
	}

	if s.settings.StorageMode != previousMode {
		if err := s.migrateStorageMode(previousMode, s.settings.StorageMode); err != nil {
			s.settings.StorageMode = previousMode
			return Settings{}, err
		}
	}

	if err := s.saveSettingsLocked(); err != nil {
		return Settings{}, err
	}

	return s.settingsCopyLocked(), nil
}

func (s *Store) migrateStorageMode(from StorageMode, to StorageMode) error {
	oldStrategy := newPersister(s.dir, from)
	newStrategy := newPersister(s.dir, to)

	for _, collection := range []string{CollectionInventory, CollectionInvoices} {
		lock := s.collectionLock(collection)
		lock.Lock()

		records, err := oldStrategy.load(collection)
		if err != nil {
			lock.Unlock()
			return &utils.StorageCorruptionError{
				Collection: collection,
				Attempts:   []string{fmt.Sprintf("primary %s store during migration", from)},
				Err:        err,
			}
		}
		if err := s.backupFile(newStrategy.dataFile(collection)); err != nil {
			lock.Unlock()
			return err
		}
		if err := newStrategy.save(collection, records); err != nil {
			lock.Unlock()
			return err
		}
		lock.Unlock()
	}

	s.strategy = newStrategy
	return nil
}
