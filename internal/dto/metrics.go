package dto

// MetricsSummary - выработка одного пользователя: itemType -> taskType -> count
type MetricsSummary struct {
	UserID      string                      `json:"user_id"`
	Counts      map[string]map[string]int64 `json:"counts"`
	TotalBlocks int64                       `json:"total_blocks"`
}

type MetricsResponse struct {
	Date    string           `json:"date"`
	Daily   []MetricsSummary `json:"daily"`
	Weekly  []MetricsSummary `json:"weekly"`
	Monthly []MetricsSummary `json:"monthly"`
}
