package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed session store. The session_records
// table must already exist (storage.Open migrates it).
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &sqliteStore{db: db, ttl: ttl}, nil
}

func (s *sqliteStore) Put(ctx context.Context, rec Record) error {
	if rec.SessionID == "" || rec.Flow == "" {
		return fmt.Errorf("session id and flow required")
	}
	rec.stamp(time.Now(), s.ttl)
	row := toRow(rec)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_key = ?", row.Key).Delete(&storage.SessionRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (s *sqliteStore) Get(ctx context.Context, sessionID, flow string) (Record, error) {
	var row storage.SessionRecord
	err := s.db.WithContext(ctx).Where("record_key = ?", Key(sessionID, flow)).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec := fromRow(row)
	if rec.Expired(time.Now()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *sqliteStore) Remove(ctx context.Context, sessionID, flow string) error {
	return s.db.WithContext(ctx).Where("record_key = ?", Key(sessionID, flow)).Delete(&storage.SessionRecord{}).Error
}

func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&storage.SessionRecord{}).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Pluck("record_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.SessionRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&storage.SessionRecord{}).Count(&total).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverSQLite,
		"total":       total,
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	return nil
}

func toRow(rec Record) storage.SessionRecord {
	row := storage.SessionRecord{
		Key:          rec.Key(),
		SessionID:    rec.SessionID,
		Flow:         rec.Flow,
		State:        string(rec.State),
		ResultText:   rec.ResultText,
		ResultEmpty:  rec.ResultEmpty,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		ExpiresAt:    rec.ExpiresAt,
	}
	if rec.Upload != nil {
		row.ImageData = rec.Upload.Bytes
		row.ImageFormat = string(rec.Upload.Format)
		row.ImageFilename = rec.Upload.Filename
	}
	return row
}

func fromRow(row storage.SessionRecord) Record {
	rec := Record{
		SessionID:    row.SessionID,
		Flow:         row.Flow,
		State:        State(row.State),
		ResultText:   row.ResultText,
		ResultEmpty:  row.ResultEmpty,
		ErrorMessage: row.ErrorMessage,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		ExpiresAt:    row.ExpiresAt,
	}
	if len(row.ImageData) > 0 {
		rec.Upload = &image.Upload{
			Bytes:    row.ImageData,
			Format:   image.Format(row.ImageFormat),
			Filename: row.ImageFilename,
		}
	}
	return rec
}
