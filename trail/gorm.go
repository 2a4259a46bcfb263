package trail

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/schemaflow/types"
)

// AttemptRecord 是轨迹表的一行。文本轨迹适合 tail，这张表适合
// 按请求 ID 回放整个尝试序列。
type AttemptRecord struct {
	ID          uint      `gorm:"primaryKey"`
	RequestID   string    `gorm:"index;size:64"`
	Attempt     int       `gorm:"not null"`
	Backend     string    `gorm:"size:128"`
	Outcome     string    `gorm:"size:32;index"`
	PromptTail  string    `gorm:"type:text"`
	RawResponse string    `gorm:"type:text"`
	ErrDetail   string    `gorm:"type:text"`
	At          time.Time `gorm:"index"`
}

// TableName 固定表名，避免跟随结构体改名漂移。
func (AttemptRecord) TableName() string { return "trail_attempts" }

// GormSink 把轨迹写进 SQLite（纯 Go 驱动，无 cgo）。单表，构造时
// AutoMigrate，不引入迁移文件。
type GormSink struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormSink 打开（必要时创建）SQLite 轨迹库。path 形如
// data/trail.db，测试可传 ":memory:"。
func NewGormSink(path string, logger *zap.Logger) (*GormSink, error) {
	if path == "" {
		return nil, fmt.Errorf("gorm sink requires a database path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open trail database: %w", err)
	}
	if err := db.AutoMigrate(&AttemptRecord{}); err != nil {
		return nil, fmt.Errorf("migrate trail table: %w", err)
	}

	return &GormSink{
		db:     db,
		logger: logger.With(zap.String("component", "trail_gorm")),
	}, nil
}

// Append 实现 Sink。
func (s *GormSink) Append(ctx context.Context, e Entry) error {
	row := AttemptRecord{
		RequestID:   e.RequestID,
		Attempt:     e.Attempt,
		Backend:     e.Backend,
		Outcome:     string(e.Outcome),
		PromptTail:  e.PromptTail,
		RawResponse: e.RawResponse,
		ErrDetail:   e.ErrDetail,
		At:          e.At,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert trail attempt: %w", err)
	}
	return nil
}

// ByRequest 按尝试顺序返回一个请求的全部轨迹行，用于事后回放。
func (s *GormSink) ByRequest(ctx context.Context, requestID string) ([]AttemptRecord, error) {
	var rows []AttemptRecord
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("attempt ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query trail attempts: %w", err)
	}
	return rows, nil
}

// CountByOutcome 统计某一结果分类的总行数，便于粗粒度巡检
// （比如 quota_fatal 突增）。
func (s *GormSink) CountByOutcome(ctx context.Context, outcome types.OutcomeClass) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&AttemptRecord{}).
		Where("outcome = ?", string(outcome)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count trail attempts: %w", err)
	}
	return n, nil
}

// Close 关闭底层连接。
func (s *GormSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
