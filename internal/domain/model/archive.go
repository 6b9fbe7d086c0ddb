package model

import "time"

type ArchivedClass struct {
	Class
	OriginalID string    `json:"original_id"`
	ArchivedAt time.Time `json:"archived_at"`
	ArchivedBy string    `json:"archived_by"`
}

type ArchivedQuiz struct {
	Quiz
	OriginalID string    `json:"original_id"`
	ArchivedAt time.Time `json:"archived_at"`
	ArchivedBy string    `json:"archived_by"`
}
