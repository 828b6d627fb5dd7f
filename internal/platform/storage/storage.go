package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"petvision-server-go/internal/platform/errors"
	"petvision-server-go/internal/platform/storage/migrations"
)

// SessionRecord 会话状态的持久化模型，主键为 sessionID:flow
type SessionRecord struct {
	Key           string     `gorm:"column:record_key;primaryKey;type:varchar(255)"`
	SessionID     string     `gorm:"index;not null"`
	Flow          string     `gorm:"not null"`
	State         string     `gorm:"not null"`
	ImageData     []byte     `gorm:"type:blob"`
	ImageFormat   string     `gorm:"type:varchar(16)"`
	ImageFilename string     `gorm:"type:varchar(255)"`
	ResultText    string     `gorm:"type:text"`
	ResultEmpty   bool       `gorm:"default:false"`
	ErrorMessage  string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
	ExpiresAt     *time.Time `gorm:"index"`
}

// TableName 指定表名
func (SessionRecord) TableName() string {
	return "session_records"
}

// Open 打开 SQLite 数据库并执行迁移。path 为空时使用 data/petvision.db
func Open(path string) (*gorm.DB, error) {
	const op = "storage.Open"

	if path == "" {
		path = filepath.Join("data", "petvision.db")
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.KindStorage, op, "failed to create data directory", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, fmt.Sprintf("failed to open database %s", path), err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 执行所有已注册的迁移
func Migrate(db *gorm.DB) error {
	manager := NewMigrationManager(db)
	for _, m := range registered() {
		manager.AddMigration(m)
	}
	return manager.RunMigrations()
}

func registered() []Migration {
	return []Migration{
		&migrations.Migration001SessionRecords{},
	}
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.KindStorage, "storage.Close", "failed to get sql handle", err)
	}
	return sqlDB.Close()
}
