package dto

type CreateLinesRequest struct {
	LineNumbers []string `json:"line_numbers"`
}

type LineResponse struct {
	ID         string `json:"id"`
	PIDID      string `json:"pid_id"`
	LineNumber string `json:"line_number"`
}
