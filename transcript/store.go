package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one persisted transcript row. The document is stored as JSON so
// schema changes in the conversation items never require a migration.
type Record struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"index;size:64"`
	CreatedAt time.Time `gorm:"index"`
	Payload   string
}

// TableName keeps the table singular-free and explicit.
func (Record) TableName() string { return "transcripts" }

// Store is the durable SQLite transcript archive.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (and migrates) the SQLite archive at path.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate transcript store: %w", err)
	}
	return &Store{db: db}, nil
}

// Save persists one document.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	rec := Record{
		SessionID: doc.SessionID,
		CreatedAt: time.Now().UTC(),
		Payload:   string(payload),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// BySession returns all documents recorded for a session, oldest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]*Document, error) {
	var rows []Record
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		var doc Document
		if err := json.Unmarshal([]byte(row.Payload), &doc); err != nil {
			return nil, fmt.Errorf("decode transcript %d: %w", row.ID, err)
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
