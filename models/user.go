package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDailyStepGoal is used until a user sets their own goal.
const DefaultDailyStepGoal = 10000

// User is a walker's profile. ID equals the Supabase auth user id (the
// token subject).
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	DailyStepGoal int       `json:"daily_step_goal" db:"daily_step_goal"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a profile for an authenticated subject.
func NewUser(id uuid.UUID, email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:            id,
		Email:         email,
		DailyStepGoal: DefaultDailyStepGoal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsOwnedBy reports whether subjectID refers to this user.
func (u *User) IsOwnedBy(subjectID string) bool {
	return u.ID.String() == subjectID
}
