package metrics

import (
	"time"

	"github.com/google/uuid"
)

// DayLayout - формат ключа дня в ledger (UTC)
const DayLayout = "2006-01-02"

// DailyMetric - счётчик выполненных элементов пользователя за день.
// Меняется только атомарным upsert-инкрементом.
type DailyMetric struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uk_daily_metric,priority:1"`
	Day       string    `json:"date" gorm:"type:varchar(10);not null;uniqueIndex:uk_daily_metric,priority:2;index:idx_daily_metric_day"`
	ItemType  string    `json:"item_type" gorm:"type:varchar(32);not null;uniqueIndex:uk_daily_metric,priority:3"`
	TaskType  string    `json:"task_type" gorm:"type:varchar(32);not null;uniqueIndex:uk_daily_metric,priority:4"`
	EntityID  uuid.UUID `json:"entity_id" gorm:"type:uuid;not null;uniqueIndex:uk_daily_metric,priority:5"`
	Count     int64     `json:"count" gorm:"column:items_count;not null;default:0"`
	Blocks    int64     `json:"blocks" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Increment - одна завершённая единица работы
type Increment struct {
	UserID   uuid.UUID
	EntityID uuid.UUID
	ItemType string
	TaskType string
	At       time.Time
	Blocks   int
}

// Day возвращает ключ дня для момента t
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// Range - закрытый интервал дней [From, To]
type Range struct {
	From string
	To   string
}

// DailyRange, WeeklyRange, MonthlyRange - окна отчётов, заканчивающиеся днём date
func DailyRange(date time.Time) Range {
	return Range{From: Day(date), To: Day(date)}
}

func WeeklyRange(date time.Time) Range {
	return Range{From: Day(date.AddDate(0, 0, -6)), To: Day(date)}
}

func MonthlyRange(date time.Time) Range {
	return Range{From: Day(date.AddDate(0, 0, -29)), To: Day(date)}
}

// Filter сужает выборку; nil/пустые поля не фильтруют
type Filter struct {
	UserID   *uuid.UUID
	ItemType string
}

// Bucket - сумма по (user, itemType, taskType) за интервал
type Bucket struct {
	UserID   uuid.UUID
	ItemType string
	TaskType string
	Count    int64
	Blocks   int64
}

// Summary - выработка пользователя в форме для отчётов
type Summary struct {
	UserID      uuid.UUID
	Counts      map[string]map[string]int64
	TotalBlocks int64
}

// Report - дневные, недельные и месячные сводки на дату
type Report struct {
	Date    string
	Daily   []Summary
	Weekly  []Summary
	Monthly []Summary
}
