package model

import "time"

const (
	ClassStatusActive   = "active"
	ClassStatusArchived = "archived"
)

type Class struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Subject       string    `json:"subject"`
	TeacherID     string    `json:"teacher_id"`
	TeacherEmail  string    `json:"teacher_email"`
	TeacherName   string    `json:"teacher_name"`
	StudentCount  int       `json:"student_count"`
	Status        string    `json:"status"`
	FileName      string    `json:"file_name,omitempty"`
	SourceFileURL string    `json:"source_file_url,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

type ClassDetail struct {
	Class    *Class  `json:"class"`
	Students []*User `json:"students"`
}

// ImportResult summarises a classlist upload.
type ImportResult struct {
	Class           *Class   `json:"class"`
	NewStudents     int      `json:"new_students"`
	AddedToExisting int      `json:"added_to_existing"`
	Errors          int      `json:"errors"`
	ErrorMessages   []string `json:"error_messages,omitempty"`
}
