package migrations

import (
	"gorm.io/gorm"
)

// Migration001SessionRecords 创建会话状态表
type Migration001SessionRecords struct{}

func (m *Migration001SessionRecords) Version() string {
	return "001_session_records"
}

func (m *Migration001SessionRecords) Description() string {
	return "Create session_records table for per-flow analysis state"
}

func (m *Migration001SessionRecords) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_records (
			record_key VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			flow VARCHAR(32) NOT NULL,
			state VARCHAR(32) NOT NULL,
			image_data BLOB,
			image_format VARCHAR(16),
			image_filename VARCHAR(255),
			result_text TEXT,
			result_empty BOOLEAN DEFAULT FALSE,
			error_message TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME
		)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_records_session_id ON session_records(session_id)`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_session_records_expires_at ON session_records(expires_at)`).Error
}

func (m *Migration001SessionRecords) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS session_records`).Error
}
