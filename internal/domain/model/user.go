package model

import (
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"

	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID             string    `json:"id"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	StudentNo      string    `json:"student_no,omitempty"`
	Program        string    `json:"program,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	Year           string    `json:"year,omitempty"`
	ContactNo      string    `json:"contact_no,omitempty"`
	HasAccount     bool      `json:"has_account"`
	ClassIDs       []string  `json:"class_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName falls back to the email local part, then "Teacher".
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i, c := range u.Email {
		if c == '@' {
			if i > 0 {
				return u.Email[:i]
			}
			break
		}
	}
	return "Teacher"
}

// InClass reports whether the user is enrolled in classID.
func (u *User) InClass(classID string) bool {
	for _, id := range u.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

type UserFilter struct {
	Role   string
	Search string
}
