package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// tablePersister keeps a collection as a relational table in a local sqlite
// file, one database file per collection. The handle is opened per operation
// so the primary file is always safe to snapshot between writes.
type tablePersister struct {
	dir string
}

type storedRecord struct {
	RecordId string `gorm:"primaryKey;size:64"`
	Body     string `gorm:"type:text;not null"`
}

func (storedRecord) TableName() string {
	return "records"
}

func (p *tablePersister) mode() StorageMode {
	return StorageModeTable
}

func (p *tablePersister) dataFile(collection string) string {
	return filepath.Join(p.dir, collection+".db")
}

func (p *tablePersister) open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storedRecord{}); err != nil {
		closeDB(db)
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (p *tablePersister) load(collection string) (map[string]json.RawMessage, error) {
	path := p.dataFile(collection)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	return p.loadFrom(path)
}

func (p *tablePersister) loadFrom(path string) (map[string]json.RawMessage, error) {
	db, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer closeDB(db)

	var rows []storedRecord
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		records[row.RecordId] = json.RawMessage(row.Body)
	}
	return records, nil
}

func (p *tablePersister) save(collection string, records map[string]json.RawMessage) error {
	db, err := p.open(p.dataFile(collection))
	if err != nil {
		return err
	}
	defer closeDB(db)

	rows := make([]storedRecord, 0, len(records))
	for id, body := range records {
		rows = append(rows, storedRecord{RecordId: id, Body: string(body)})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&storedRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}
