package store

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PratikDhanave/event-mirror-service/internal/models"
)

// eventRow is the gorm model of the events table.
type eventRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:191;not null;index:idx_events_name_ts,priority:1"`
	City      string `gorm:"size:255;not null"`
	Country   string `gorm:"size:255;not null"`
	EventDate string `gorm:"column:event_date;size:64;not null"`
	Ts        int64  `gorm:"column:ts;not null;index:idx_events_ts;index:idx_events_name_ts,priority:2"`
}

func (eventRow) TableName() string { return "events" }

// MySQLStore keeps events in MySQL through gorm.
type MySQLStore struct {
	db *gorm.DB
}

var _ EventStore = (*MySQLStore)(nil)

// NewMySQLStore connects with a go-sql-driver DSN
// (user:pass@tcp(host:3306)/db) and migrates the events table.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Insert(ctx context.Context, ev models.Event) error {
	newID(&ev)
	row := eventRow{
		ID:        ev.ID,
		Name:      ev.Name,
		City:      ev.City,
		Country:   ev.Country,
		EventDate: ev.Date,
		Ts:        ev.Timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Find goes through gorm's raw path so the column list and row scanning
// are shared with the other backends.
func (s *MySQLStore) Find(ctx context.Context, q Query) ([]models.Event, error) {
	query, args, cols := buildFind(q, func(int) string { return "?" })
	rows, err := s.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return collect(rows, cols)
}

func (s *MySQLStore) Clear(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&eventRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear events: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
