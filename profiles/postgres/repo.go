// Package postgres is a profiles.Repo over a direct PostgreSQL connection.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/jrsteele09/learnpath/profiles"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens the database and checks it answers before ctx ends.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[postgres Open] %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[postgres Open] ping: %w", err)
	}
	return db, nil
}

// Migrate applies every pending migration. It is a no-op when the schema is
// current.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("[postgres Migrate] source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("[postgres Migrate] %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("[postgres Migrate] up: %w", err)
	}
	return nil
}

var _ profiles.Repo = (*Repo)(nil)

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

func (r *Repo) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	p := &profiles.Profile{}
	var style string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, learning_style, evaluation_completed, xp, level,
		        streak_days, courses_completed, lessons_completed, updated_at
		   FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.DisplayName, &style, &p.EvaluationCompleted, &p.XP, &p.Level,
		&p.StreakDays, &p.CoursesCompleted, &p.LessonsCompleted, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, profiles.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[postgres Get] %w", err)
	}
	p.LearningStyle = profiles.LearningStyle(style)
	return p, nil
}

func (r *Repo) Upsert(ctx context.Context, id string, patch profiles.Patch) error {
	query, args := buildUpsert(id, patch, r.now().UTC())
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("[postgres Upsert] %w", err)
	}
	return nil
}

// buildUpsert writes only the columns set in patch, so concurrent updates of
// different fields do not overwrite each other.
func buildUpsert(id string, patch profiles.Patch, now time.Time) (string, []any) {
	cols := []string{"id"}
	args := []any{id}
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}

	if patch.DisplayName != nil {
		add("display_name", *patch.DisplayName)
	}
	if patch.LearningStyle != nil {
		add("learning_style", string(*patch.LearningStyle))
	}
	if patch.EvaluationCompleted != nil {
		add("evaluation_completed", *patch.EvaluationCompleted)
	}
	if patch.XP != nil {
		add("xp", *patch.XP)
	}
	if patch.Level != nil {
		add("level", *patch.Level)
	}
	if patch.StreakDays != nil {
		add("streak_days", *patch.StreakDays)
	}
	if patch.CoursesCompleted != nil {
		add("courses_completed", *patch.CoursesCompleted)
	}
	if patch.LessonsCompleted != nil {
		add("lessons_completed", *patch.LessonsCompleted)
	}
	add("updated_at", now)

	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO profiles (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	return query, args
}
