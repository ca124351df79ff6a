package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/trackscan/internal/scan"
)

// ErrStudyNotFound is returned when a study ID has no stored record.
var ErrStudyNotFound = errors.New("study not found")

// Study status values stored in scan_studies.status.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// StudyRecord is a persisted scan study summary.
type StudyRecord struct {
	StudyID     string          `json:"study_id"`
	Name        string          `json:"name"`
	Direction   string          `json:"direction"`
	Status      string          `json:"status"`
	StopReason  string          `json:"stop_reason,omitempty"`
	BestValue   *float64        `json:"best_value,omitempty"`
	BestParams  scan.Params     `json:"best_params,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	TrialCount  int             `json:"trial_count"`
}

// StudyStore persists scan studies, their trials and sector assignments.
type StudyStore struct {
	db *sql.DB
}

// NewStudyStore creates a new StudyStore.
func NewStudyStore(db *sql.DB) *StudyStore {
	return &StudyStore{db: db}
}

// SaveStudy writes the study summary, replaces its trial records and, when
// assignments is non-nil, replaces its graph-to-sector assignments. It is
// safe to call repeatedly for the same study while it is running.
func (s *StudyStore) SaveStudy(study *scan.Study, config json.RawMessage, assignments map[int]int) error {
	trials := study.Trials()
	trialRows := make([]trialRow, 0, len(trials))
	for _, rec := range trials {
		row, err := encodeTrial(rec)
		if err != nil {
			return fmt.Errorf("encoding trial %d of study %s: %w", rec.Number, study.ID, err)
		}
		trialRows = append(trialRows, row)
	}

	var bestValue interface{}
	var bestParams interface{}
	if best, ok := study.Best(); ok {
		bestValue = nullFloat(best.Value)
		b, err := json.Marshal(best.Params)
		if err != nil {
			return fmt.Errorf("encoding best params of study %s: %w", study.ID, err)
		}
		bestParams = string(b)
	}

	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO scan_studies (
				study_id, name, direction, status, stop_reason, best_value,
				best_params_json, config_json, started_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(study_id) DO UPDATE SET
				name = excluded.name,
				direction = excluded.direction,
				status = excluded.status,
				stop_reason = excluded.stop_reason,
				best_value = excluded.best_value,
				best_params_json = excluded.best_params_json,
				config_json = COALESCE(excluded.config_json, scan_studies.config_json),
				started_at = excluded.started_at,
				completed_at = excluded.completed_at
		`,
			study.ID,
			study.Name,
			study.Direction.String(),
			studyStatus(study),
			string(study.StopReason()),
			bestValue,
			bestParams,
			nullJSON(config),
			unixNano(study.StartedAt()),
			nullTime(study.CompletedAt()),
		)
		if err != nil {
			return fmt.Errorf("upserting study: %w", err)
		}

		if _, err := tx.Exec(`DELETE FROM scan_trials WHERE study_id = ?`, study.ID); err != nil {
			return fmt.Errorf("clearing trials: %w", err)
		}
		for _, row := range trialRows {
			_, err := tx.Exec(`
				INSERT INTO scan_trials (
					study_id, number, state, value, params_json,
					intermediate_json, started_at, completed_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, study.ID, row.number, row.state, row.value, row.params, row.intermediate, row.startedAt, row.completedAt)
			if err != nil {
				return fmt.Errorf("inserting trial %d: %w", row.number, err)
			}
		}

		if assignments != nil {
			if _, err := tx.Exec(`DELETE FROM scan_sector_assignments WHERE study_id = ?`, study.ID); err != nil {
				return fmt.Errorf("clearing sector assignments: %w", err)
			}
			for graph, sector := range assignments {
				_, err := tx.Exec(`INSERT INTO scan_sector_assignments (study_id, graph, sector) VALUES (?, ?, ?)`,
					study.ID, graph, sector)
				if err != nil {
					return fmt.Errorf("inserting sector assignment for graph %d: %w", graph, err)
				}
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("saving study %s: %w", study.ID, err)
	}
	logf("saved study %s (%d trials, status=%s)", study.ID, len(trialRows), studyStatus(study))
	return nil
}

// GetStudy returns the stored summary for studyID.
func (s *StudyStore) GetStudy(studyID string) (*StudyRecord, error) {
	query := `
		SELECT s.study_id, s.name, s.direction, s.status, s.stop_reason, s.best_value,
		       s.best_params_json, s.config_json, s.started_at, s.completed_at,
		       (SELECT COUNT(*) FROM scan_trials t WHERE t.study_id = s.study_id)
		FROM scan_studies s
		WHERE s.study_id = ?
	`
	rec, err := scanStudy(s.db.QueryRow(query, studyID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying study %s: %w", studyID, err)
	}
	return rec, nil
}

// ListStudies returns recent studies, most recent first.
func (s *StudyStore) ListStudies(limit int) ([]*StudyRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	query := `
		SELECT s.study_id, s.name, s.direction, s.status, s.stop_reason, s.best_value,
		       s.best_params_json, s.config_json, s.started_at, s.completed_at,
		       (SELECT COUNT(*) FROM scan_trials t WHERE t.study_id = s.study_id)
		FROM scan_studies s
		ORDER BY s.started_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing studies: %w", err)
	}
	defer rows.Close()

	var studies []*StudyRecord
	for rows.Next() {
		rec, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning study row: %w", err)
		}
		studies = append(studies, rec)
	}
	return studies, rows.Err()
}

// ListTrials returns the trial records of a study ordered by trial number.
func (s *StudyStore) ListTrials(studyID string) ([]scan.TrialRecord, error) {
	rows, err := s.db.Query(`
		SELECT number, state, value, params_json, intermediate_json, started_at, completed_at
		FROM scan_trials
		WHERE study_id = ?
		ORDER BY number
	`, studyID)
	if err != nil {
		return nil, fmt.Errorf("listing trials for study %s: %w", studyID, err)
	}
	defer rows.Close()

	var trials []scan.TrialRecord
	for rows.Next() {
		var (
			rec          scan.TrialRecord
			state        string
			value        sql.NullFloat64
			params       string
			intermediate string
			startedAt    int64
			completedAt  sql.NullInt64
		)
		if err := rows.Scan(&rec.Number, &state, &value, &params, &intermediate, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning trial row: %w", err)
		}
		st, ok := scan.ParseTrialState(state)
		if !ok {
			return nil, fmt.Errorf("trial %d: unknown state %q", rec.Number, state)
		}
		rec.State = st
		rec.Value = math.NaN()
		if value.Valid {
			rec.Value = value.Float64
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("trial %d: decoding params: %w", rec.Number, err)
		}
		if rec.Intermediate, err = decodeIntermediate(intermediate); err != nil {
			return nil, fmt.Errorf("trial %d: decoding intermediate values: %w", rec.Number, err)
		}
		rec.StartedAt = fromUnixNano(startedAt)
		if completedAt.Valid {
			rec.CompletedAt = fromUnixNano(completedAt.Int64)
		}
		trials = append(trials, rec)
	}
	return trials, rows.Err()
}

// SectorAssignments returns the graph-to-sector assignments stored for a study.
func (s *StudyStore) SectorAssignments(studyID string) (map[int]int, error) {
	rows, err := s.db.Query(`SELECT graph, sector FROM scan_sector_assignments WHERE study_id = ?`, studyID)
	if err != nil {
		return nil, fmt.Errorf("querying sector assignments for study %s: %w", studyID, err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var graph, sector int
		if err := rows.Scan(&graph, &sector); err != nil {
			return nil, fmt.Errorf("scanning sector assignment: %w", err)
		}
		out[graph] = sector
	}
	return out, rows.Err()
}

// DeleteStudy removes a study together with its trials and assignments.
func (s *StudyStore) DeleteStudy(studyID string) error {
	var deleted int64
	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		for _, q := range []string{
			`DELETE FROM scan_sector_assignments WHERE study_id = ?`,
			`DELETE FROM scan_trials WHERE study_id = ?`,
		} {
			if _, err := tx.Exec(q, studyID); err != nil {
				return err
			}
		}
		res, err := tx.Exec(`DELETE FROM scan_studies WHERE study_id = ?`, studyID)
		if err != nil {
			return err
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("deleting study %s: %w", studyID, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudy(row rowScanner) (*StudyRecord, error) {
	var (
		rec         StudyRecord
		bestValue   sql.NullFloat64
		bestParams  sql.NullString
		config      sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&rec.StudyID, &rec.Name, &rec.Direction, &rec.Status, &rec.StopReason,
		&bestValue, &bestParams, &config, &startedAt, &completedAt, &rec.TrialCount,
	)
	if err != nil {
		return nil, err
	}
	if bestValue.Valid {
		v := bestValue.Float64
		rec.BestValue = &v
	}
	if bestParams.Valid && bestParams.String != "" {
		if err := json.Unmarshal([]byte(bestParams.String), &rec.BestParams); err != nil {
			return nil, fmt.Errorf("decoding best params: %w", err)
		}
	}
	if config.Valid && config.String != "" {
		rec.Config = json.RawMessage(config.String)
	}
	rec.StartedAt = fromUnixNano(startedAt)
	if completedAt.Valid {
		t := fromUnixNano(completedAt.Int64)
		rec.CompletedAt = &t
	}
	return &rec, nil
}

type trialRow struct {
	number       int
	state        string
	value        interface{}
	params       string
	intermediate string
	startedAt    int64
	completedAt  interface{}
}

func encodeTrial(rec scan.TrialRecord) (trialRow, error) {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return trialRow{}, err
	}
	intermediate, err := encodeIntermediate(rec.Intermediate)
	if err != nil {
		return trialRow{}, err
	}
	return trialRow{
		number:       rec.Number,
		state:        rec.State.String(),
		value:        nullFloat(rec.Value),
		params:       string(params),
		intermediate: intermediate,
		startedAt:    unixNano(rec.StartedAt),
		completedAt:  nullTime(rec.CompletedAt),
	}, nil
}

// encodeIntermediate stores NaN reports as JSON null since encoding/json
// rejects non-finite floats.
func encodeIntermediate(values map[int]float64) (string, error) {
	out := make(map[int]*float64, len(values))
	for step, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[step] = nil
			continue
		}
		v := v
		out[step] = &v
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIntermediate(s string) (map[int]float64, error) {
	var raw map[int]*float64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	out := make(map[int]float64, len(raw))
	for step, v := range raw {
		if v == nil {
			out[step] = math.NaN()
			continue
		}
		out[step] = *v
	}
	return out, nil
}

func studyStatus(study *scan.Study) string {
	switch {
	case study.CompletedAt().IsZero():
		return StatusRunning
	case study.StopReason() == scan.StopFailed:
		return StatusFailed
	default:
		return StatusComplete
	}
}

func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

// unixNano maps the zero time to 0 rather than an out-of-range value.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func nullJSON(b json.RawMessage) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
