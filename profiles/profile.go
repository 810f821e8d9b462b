// Package profiles holds the application's per-user record: onboarding
// results and learning progress, keyed by identity id.
package profiles

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means no profile row exists yet for the identity. It models a
// user who has not finished onboarding and is not a failure.
var ErrNotFound = errors.New("profile not found")

type LearningStyle string

const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleReading     LearningStyle = "reading"
	StyleKinesthetic LearningStyle = "kinesthetic"
)

// Profile is the application record for one identity.
type Profile struct {
	ID                  string        `json:"id"`
	DisplayName         string        `json:"display_name"`
	LearningStyle       LearningStyle `json:"learning_style"`
	EvaluationCompleted bool          `json:"evaluation_completed"`
	XP                  int           `json:"xp"`
	Level               int           `json:"level"`
	StreakDays          int           `json:"streak_days"`
	CoursesCompleted    int           `json:"courses_completed"`
	LessonsCompleted    int           `json:"lessons_completed"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Completed reports whether onboarding is done. A nil profile is not.
func (p *Profile) Completed() bool {
	return p != nil && p.EvaluationCompleted
}

// Patch is a partial profile update; nil fields are left unchanged.
type Patch struct {
	DisplayName         *string        `json:"display_name,omitempty"`
	LearningStyle       *LearningStyle `json:"learning_style,omitempty"`
	EvaluationCompleted *bool          `json:"evaluation_completed,omitempty"`
	XP                  *int           `json:"xp,omitempty"`
	Level               *int           `json:"level,omitempty"`
	StreakDays          *int           `json:"streak_days,omitempty"`
	CoursesCompleted    *int           `json:"courses_completed,omitempty"`
	LessonsCompleted    *int           `json:"lessons_completed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply merges the patch into profile and stamps UpdatedAt.
func (p Patch) Apply(profile *Profile, now time.Time) {
	if p.DisplayName != nil {
		profile.DisplayName = *p.DisplayName
	}
	if p.LearningStyle != nil {
		profile.LearningStyle = *p.LearningStyle
	}
	if p.EvaluationCompleted != nil {
		profile.EvaluationCompleted = *p.EvaluationCompleted
	}
	if p.XP != nil {
		profile.XP = *p.XP
	}
	if p.Level != nil {
		profile.Level = *p.Level
	}
	if p.StreakDays != nil {
		profile.StreakDays = *p.StreakDays
	}
	if p.CoursesCompleted != nil {
		profile.CoursesCompleted = *p.CoursesCompleted
	}
	if p.LessonsCompleted != nil {
		profile.LessonsCompleted = *p.LessonsCompleted
	}
	profile.UpdatedAt = now
}

// Repo is the profile backend: one logical table keyed by identity id.
type Repo interface {
	// Get returns ErrNotFound when no row exists for id.
	Get(ctx context.Context, id string) (*Profile, error)

	// Upsert creates the row for id if needed and applies patch to it.
	Upsert(ctx context.Context, id string, patch Patch) error
}
