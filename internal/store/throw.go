package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hand"
)

// Throw is one logged release.
type Throw struct {
	ID           string     `json:"id"`
	ObjectID     string     `json:"object_id"`
	Side         hand.Side  `json:"side"`
	Kind         string     `json:"kind"`
	Linear       mgl64.Vec3 `json:"linear"`
	Angular      mgl64.Vec3 `json:"angular"`
	Speed        float64    `json:"speed"`
	AngularSpeed float64    `json:"angular_speed"`
	Samples      int        `json:"samples"`
	ReleasedAt   time.Time  `json:"released_at"`
}

// ThrowFromHandoff builds a Throw record for a release handoff.
func ThrowFromHandoff(h grip.Handoff, at time.Time) *Throw {
	return &Throw{
		ObjectID:     string(h.Object),
		Side:         h.Side,
		Kind:         h.Kind,
		Linear:       h.Velocity.Linear,
		Angular:      h.Velocity.Angular,
		Speed:        h.Velocity.Speed(),
		AngularSpeed: h.Velocity.AngularSpeed(),
		Samples:      h.Samples,
		ReleasedAt:   at,
	}
}

// ThrowStats aggregates the throw log.
type ThrowStats struct {
	Count           int            `json:"count"`
	MaxSpeed        float64        `json:"max_speed"`
	AvgSpeed        float64        `json:"avg_speed"`
	MaxAngularSpeed float64        `json:"max_angular_speed"`
	BySide          map[string]int `json:"by_side"`
	ByKind          map[string]int `json:"by_kind"`
}

// ThrowRepository provides access to the throw log.
type ThrowRepository struct {
	db *sql.DB
}

// Throws returns the throw repository for this store.
func (s *Store) Throws() *ThrowRepository {
	return &ThrowRepository{db: s.db}
}

const throwColumns = `id, object_id, side, kind, linear_x, linear_y, linear_z,
	angular_x, angular_y, angular_z, speed, angular_speed, samples, released_at`

// Create inserts t, assigning an ID and release time when unset.
func (r *ThrowRepository) Create(t *Throw) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ReleasedAt.IsZero() {
		t.ReleasedAt = time.Now()
	}
	t.ReleasedAt = t.ReleasedAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO throws (`+throwColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ObjectID, t.Side.String(), t.Kind,
		t.Linear.X(), t.Linear.Y(), t.Linear.Z(),
		t.Angular.X(), t.Angular.Y(), t.Angular.Z(),
		t.Speed, t.AngularSpeed, t.Samples, t.ReleasedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanThrow(row scanner) (*Throw, error) {
	t := &Throw{}
	var side string

	err := row.Scan(
		&t.ID, &t.ObjectID, &side, &t.Kind,
		&t.Linear[0], &t.Linear[1], &t.Linear[2],
		&t.Angular[0], &t.Angular[1], &t.Angular[2],
		&t.Speed, &t.AngularSpeed, &t.Samples, &t.ReleasedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Side, err = hand.ParseSide(side)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a throw by its ID.
func (r *ThrowRepository) GetByID(id string) (*Throw, error) {
	row := r.db.QueryRow(`SELECT `+throwColumns+` FROM throws WHERE id = ?`, id)

	t, err := scanThrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns the most recent throws, newest first. A non-positive limit
// returns every throw.
func (r *ThrowRepository) List(limit int) ([]*Throw, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT `+throwColumns+` FROM throws ORDER BY released_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	throws := []*Throw{}
	for rows.Next() {
		t, err := scanThrow(rows)
		if err != nil {
			return nil, err
		}
		throws = append(throws, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return throws, nil
}

// Delete removes a throw by its ID.
func (r *ThrowRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM throws WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Stats aggregates every logged throw.
func (r *ThrowRepository) Stats() (*ThrowStats, error) {
	stats := &ThrowStats{
		BySide: map[string]int{},
		ByKind: map[string]int{},
	}

	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(speed), 0), COALESCE(AVG(speed), 0), COALESCE(MAX(angular_speed), 0)
		 FROM throws`,
	).Scan(&stats.Count, &stats.MaxSpeed, &stats.AvgSpeed, &stats.MaxAngularSpeed)
	if err != nil {
		return nil, err
	}

	if err := r.countBy("side", stats.BySide); err != nil {
		return nil, err
	}
	if err := r.countBy("kind", stats.ByKind); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBy fills into with per-value row counts of column.
func (r *ThrowRepository) countBy(column string, into map[string]int) error {
	rows, err := r.db.Query(`SELECT ` + column + `, COUNT(*) FROM throws GROUP BY ` + column)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
