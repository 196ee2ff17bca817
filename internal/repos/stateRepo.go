package repos

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/wheelibin/hughbridge/internal/models"
)

const initSchema = `
  CREATE TABLE IF NOT EXISTS light_state (
    light_index INTEGER PRIMARY KEY,
    name TEXT,
    uniqueid TEXT,
    on_state INTEGER,
    brightness INTEGER,
    hue INTEGER,
    saturation INTEGER,
    colour_temp INTEGER,
    colour_mode INTEGER,
    updated_at TIMESTAMP
  );

  CREATE TABLE IF NOT EXISTS state_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    light_index INTEGER,
    on_state INTEGER,
    brightness INTEGER,
    hue INTEGER,
    saturation INTEGER,
    colour_temp INTEGER,
    colour_mode INTEGER,
    changed_at TIMESTAMP
  );

  -- state does not survive a restart
  DELETE FROM light_state;
  DELETE FROM state_history;
`

// Open opens the sqlite journal. A single connection keeps ":memory:" databases
// shared between queries.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("Error opening state database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Error connecting to state database: %w", err)
	}
	return db, nil
}

// StateRepo journals every light state change.
type StateRepo struct {
	logger *log.Logger
	db     *sql.DB
}

func NewStateRepo(logger *log.Logger, db *sql.DB) (*StateRepo, error) {

	_, err := db.Exec(initSchema)
	if err != nil {
		return nil, fmt.Errorf("Error initialising state schema: %w", err)
	}

	return &StateRepo{logger: logger, db: db}, nil
}

func (r *StateRepo) Name() string { return "sqlite" }

func (r *StateRepo) Apply(change models.StateChange) error {
	return r.Save(change)
}

// Save records change as the latest state of its light and appends it to the history.
func (r *StateRepo) Save(change models.StateChange) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("Error saving state for light (%d): %w", change.LightNumber(), err)
	}
	defer func() { _ = tx.Rollback() }()

	s := change.State
	_, err = tx.Exec(`
    INSERT INTO light_state
      (light_index, name, uniqueid, on_state, brightness, hue, saturation, colour_temp, colour_mode, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT(light_index) DO UPDATE SET
      name = excluded.name,
      uniqueid = excluded.uniqueid,
      on_state = excluded.on_state,
      brightness = excluded.brightness,
      hue = excluded.hue,
      saturation = excluded.saturation,
      colour_temp = excluded.colour_temp,
      colour_mode = excluded.colour_mode,
      updated_at = excluded.updated_at;`,
		change.Index, change.Name, change.UniqueID,
		s.On, s.Brightness, s.Hue, s.Saturation, s.ColorTemperature, int(s.ColorMode),
		change.Time,
	)
	if err != nil {
		return fmt.Errorf("Error saving state for light (%d): %w", change.LightNumber(), err)
	}

	_, err = tx.Exec(`
    INSERT INTO state_history
      (light_index, on_state, brightness, hue, saturation, colour_temp, colour_mode, changed_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		change.Index, s.On, s.Brightness, s.Hue, s.Saturation, s.ColorTemperature, int(s.ColorMode),
		change.Time,
	)
	if err != nil {
		return fmt.Errorf("Error recording history for light (%d): %w", change.LightNumber(), err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("Error saving state for light (%d): %w", change.LightNumber(), err)
	}
	return nil
}

// Latest returns the last saved change for the light at index. ok is false when
// nothing has been saved for it yet.
func (r *StateRepo) Latest(index int) (change models.StateChange, ok bool, err error) {
	row := r.db.QueryRow(`
    SELECT name, uniqueid, on_state, brightness, hue, saturation, colour_temp, colour_mode, updated_at
    FROM light_state
    WHERE light_index = $1`, index)

	var (
		s    models.LightState
		mode int
	)
	change.Index = index
	err = row.Scan(&change.Name, &change.UniqueID, &s.On, &s.Brightness, &s.Hue, &s.Saturation, &s.ColorTemperature, &mode, &change.Time)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.StateChange{}, false, nil
		}
		return models.StateChange{}, false, fmt.Errorf("Error reading state for light (%d): %w", index+1, err)
	}
	s.ColorMode = models.ColorMode(mode)
	change.State = s

	return change, true, nil
}

// History returns up to limit changes for the light at index, newest first.
func (r *StateRepo) History(index int, limit int) ([]models.StateChange, error) {
	rows, err := r.db.Query(`
    SELECT on_state, brightness, hue, saturation, colour_temp, colour_mode, changed_at
    FROM state_history
    WHERE light_index = $1
    ORDER BY id DESC
    LIMIT $2`, index, limit)
	if err != nil {
		return nil, fmt.Errorf("Error reading history for light (%d): %w", index+1, err)
	}
	defer rows.Close()

	changes := []models.StateChange{}
	for rows.Next() {
		var (
			change = models.StateChange{Index: index}
			mode   int
		)
		s := &change.State
		err := rows.Scan(&s.On, &s.Brightness, &s.Hue, &s.Saturation, &s.ColorTemperature, &mode, &change.Time)
		if err != nil {
			return nil, fmt.Errorf("Error reading history for light (%d): %w", index+1, err)
		}
		s.ColorMode = models.ColorMode(mode)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Error reading history for light (%d): %w", index+1, err)
	}

	return changes, nil
}
