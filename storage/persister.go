package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// persister is the storage-format strategy behind the store: given a mapping
// of record ids to raw record bodies, persist and later retrieve them
// losslessly. One primary file per collection so backups stay file snapshots.
type persister interface {
	load(collection string) (map[string]json.RawMessage, error)
	loadFrom(path string) (map[string]json.RawMessage, error)
	save(collection string, records map[string]json.RawMessage) error
	dataFile(collection string) string
	mode() StorageMode
}

func newPersister(dir string, storageMode StorageMode) persister {
	if storageMode == StorageModeJSON {
		return &jsonPersister{dir: dir}
	}
	return &tablePersister{dir: dir}
}

// jsonPersister keeps a collection as one flat JSON object keyed by record id.
type jsonPersister struct {
	dir string
}

func (p *jsonPersister) mode() StorageMode {
	return StorageModeJSON
}

func (p *jsonPersister) dataFile(collection string) string {
	return filepath.Join(p.dir, collection+".json")
}

func (p *jsonPersister) load(collection string) (map[string]json.RawMessage, error) {
	path := p.dataFile(collection)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	return p.loadFrom(path)
}

func (p *jsonPersister) loadFrom(path string) (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *jsonPersister) save(collection string, records map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.dataFile(collection), raw, 0o644)
}
