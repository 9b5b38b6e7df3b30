package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/CognitionIES/teamsync/internal/apperr"
	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/google/uuid"
)

// Query - параметры чтения метрик
type Query struct {
	Date     time.Time
	UserID   *uuid.UUID
	ItemType string
}

type Service interface {
	Report(ctx context.Context, actor auth.Principal, q Query) (Report, error)
	Daily(ctx context.Context, date time.Time, f Filter) ([]Summary, error)
	Weekly(ctx context.Context, date time.Time, f Filter) ([]Summary, error)
	Monthly(ctx context.Context, date time.Time, f Filter) ([]Summary, error)
}

type service struct {
	ledger Ledger
}

func NewService(ledger Ledger) Service {
	return &service{ledger: ledger}
}

// Report собирает три среза на дату; участник команды видит только себя
func (s *service) Report(ctx context.Context, actor auth.Principal, q Query) (Report, error) {
	if q.Date.IsZero() {
		q.Date = time.Now()
	}

	f := Filter{UserID: q.UserID, ItemType: q.ItemType}
	if !actor.SeesAll() {
		if q.UserID != nil && *q.UserID != actor.UserID {
			return Report{}, apperr.Forbidden("metrics of other users are not visible")
		}
		self := actor.UserID
		f.UserID = &self
	}

	daily, err := s.Daily(ctx, q.Date, f)
	if err != nil {
		return Report{}, err
	}
	weekly, err := s.Weekly(ctx, q.Date, f)
	if err != nil {
		return Report{}, err
	}
	monthly, err := s.Monthly(ctx, q.Date, f)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Date:    Day(q.Date),
		Daily:   daily,
		Weekly:  weekly,
		Monthly: monthly,
	}, nil
}

func (s *service) Daily(ctx context.Context, date time.Time, f Filter) ([]Summary, error) {
	return s.summaries(ctx, DailyRange(date), f)
}

func (s *service) Weekly(ctx context.Context, date time.Time, f Filter) ([]Summary, error) {
	return s.summaries(ctx, WeeklyRange(date), f)
}

func (s *service) Monthly(ctx context.Context, date time.Time, f Filter) ([]Summary, error) {
	return s.summaries(ctx, MonthlyRange(date), f)
}

func (s *service) summaries(ctx context.Context, r Range, f Filter) ([]Summary, error) {
	buckets, err := s.ledger.Totals(ctx, r, f)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to read metrics")
	}
	return Summarize(buckets), nil
}

// Summarize раскладывает суммы по пользователям: itemType -> taskType -> count
func Summarize(buckets []Bucket) []Summary {
	byUser := make(map[uuid.UUID]*Summary)
	for _, b := range buckets {
		sum, ok := byUser[b.UserID]
		if !ok {
			sum = &Summary{UserID: b.UserID, Counts: make(map[string]map[string]int64)}
			byUser[b.UserID] = sum
		}
		byTask, ok := sum.Counts[b.ItemType]
		if !ok {
			byTask = make(map[string]int64)
			sum.Counts[b.ItemType] = byTask
		}
		byTask[b.TaskType] += b.Count
		sum.TotalBlocks += b.Blocks
	}

	result := make([]Summary, 0, len(byUser))
	for _, sum := range byUser {
		result = append(result, *sum)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID.String() < result[j].UserID.String()
	})
	return result
}
