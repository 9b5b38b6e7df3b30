package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger - хранилище дневных счётчиков
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	// Increment атомарно добавляет 1 к count и blocks к blocks (или вставляет строку)
	Increment(ctx context.Context, inc Increment) error
	Totals(ctx context.Context, r Range, f Filter) ([]Bucket, error)
}

type ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	return &ledger{db: tx}
}

func (l *ledger) Increment(ctx context.Context, inc Increment) error {
	at := inc.At
	if at.IsZero() {
		at = time.Now()
	}
	now := time.Now().UTC()

	row := DailyMetric{
		ID:        uuid.New(),
		UserID:    inc.UserID,
		Day:       Day(at),
		ItemType:  inc.ItemType,
		TaskType:  inc.TaskType,
		EntityID:  inc.EntityID,
		Count:     1,
		Blocks:    int64(inc.Blocks),
		UpdatedAt: now,
	}

	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "day"},
			{Name: "item_type"},
			{Name: "task_type"},
			{Name: "entity_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"items_count": gorm.Expr("daily_metrics.items_count + ?", 1),
			"blocks":      gorm.Expr("daily_metrics.blocks + ?", inc.Blocks),
			"updated_at":  now,
		}),
	}).Create(&row).Error
}

func (l *ledger) Totals(ctx context.Context, r Range, f Filter) ([]Bucket, error) {
	var buckets []Bucket
	tx := l.db.WithContext(ctx).
		Model(&DailyMetric{}).
		Select("user_id, item_type, task_type, " +
			"CAST(SUM(items_count) AS BIGINT) AS count, " +
			"CAST(SUM(blocks) AS BIGINT) AS blocks").
		Where("day BETWEEN ? AND ?", r.From, r.To)

	if f.UserID != nil {
		tx = tx.Where("user_id = ?", *f.UserID)
	}
	if f.ItemType != "" {
		tx = tx.Where("item_type = ?", f.ItemType)
	}

	err := tx.Group("user_id, item_type, task_type").
		Order("user_id, item_type, task_type").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}
