/*
 * Filename: store.go
 * Path: modisco
 */

package modisco

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Pattern stages kept in the store
const (
	StageFinal      = "final"
	StageMerged     = "merged"
	StageReassigned = "reassigned"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		success INTEGER NOT NULL,
		state TEXT NOT NULL,
		total_time_ms INTEGER NOT NULL,
		config TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		stage TEXT NOT NULL,
		pattern_rank INTEGER NOT NULL,
		length INTEGER NOT NULL,
		num_seqlets INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pattern_seqlets (
		pattern_id INTEGER NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
		example_idx INTEGER NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		revcomp INTEGER NOT NULL,
		seqlet_offset INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pattern_tracks (
		pattern_id INTEGER NOT NULL REFERENCES patterns(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		data BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cluster_results (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seqlet_idx INTEGER NOT NULL,
		example_idx INTEGER NOT NULL,
		start_pos INTEGER NOT NULL,
		end_pos INTEGER NOT NULL,
		revcomp INTEGER NOT NULL,
		cluster INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patterns_run ON patterns(run_id, stage, pattern_rank)`,
	`CREATE INDEX IF NOT EXISTS idx_pattern_seqlets ON pattern_seqlets(pattern_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pattern_tracks ON pattern_tracks(pattern_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cluster_results ON cluster_results(run_id, seqlet_idx)`,
}

// ResultsStore keeps finished runs in a SQLite database
type ResultsStore struct {
	db *sql.DB
}

// RunSummary is one row of the runs table
type RunSummary struct {
	ID        int64
	Name      string
	Success   bool
	State     string
	TotalTime time.Duration
	CreatedAt time.Time
}

// StoredSeqlet is a seqlet coordinate and its offset in the pattern
type StoredSeqlet struct {
	Coordinate
	Offset int
}

// StoredPattern is a pattern as saved, with its mean tracks
type StoredPattern struct {
	Stage   string
	Rank    int
	Length  int
	Seqlets []StoredSeqlet
	Tracks  map[string]*Track
}

// StoredAssignment is the cluster of one seqlet in the last round
type StoredAssignment struct {
	Coordinate
	Cluster int
}

// StoredRun is a run read back from the store
type StoredRun struct {
	RunSummary
	Config   string
	Patterns []StoredPattern
	Clusters []StoredAssignment
}

// OpenResultsStore opens or creates the database, ":memory:" gives a
// throwaway one
func OpenResultsStore(dbPath string) (*ResultsStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range append(pragmas, schema...) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("preparing database with %q: %w", p, err)
		}
	}
	return &ResultsStore{db: db}, nil
}

// Close closes the database
func (r *ResultsStore) Close() error {
	return r.db.Close()
}

// SaveResults stores a run in one transaction and returns its id
func (r *ResultsStore) SaveResults(ctx context.Context, name string, res *SeqletsToPatternsResults, cfg *Config) (int64, error) {
	text, err := cfg.YAML()
	if err != nil {
		return 0, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ans, err := tx.ExecContext(ctx,
		`INSERT INTO runs (name, success, state, total_time_ms, config, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		name, res.Success, res.State.String(), res.TotalTime.Milliseconds(), text,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := ans.LastInsertId()
	if err != nil {
		return 0, err
	}

	stages := []struct {
		stage    string
		patterns []*Pattern
	}{
		{StageFinal, res.Patterns},
		{StageMerged, res.MergedPatterns},
		{StageReassigned, res.ReassignedPatterns},
	}
	for _, st := range stages {
		for rank, p := range st.patterns {
			if err := insertPattern(ctx, tx, runID, st.stage, rank, p); err != nil {
				return 0, err
			}
		}
	}

	if res.ClusterResults != nil && len(res.ClusterResults.Indices) == len(res.Seqlets) {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cluster_results (run_id, seqlet_idx, example_idx, start_pos, end_pos, revcomp, cluster) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()
		for i, s := range res.Seqlets {
			c := s.Coordinate
			if _, err := stmt.ExecContext(ctx, runID, i, c.ExampleIdx, c.Start, c.End, c.RevComp,
				res.ClusterResults.Indices[i]); err != nil {
				return 0, fmt.Errorf("inserting cluster assignment: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Noticef("Run `%s` saved with id %d", name, runID)
	return runID, nil
}

func insertPattern(ctx context.Context, tx *sql.Tx, runID int64, stage string, rank int, p *Pattern) error {
	ans, err := tx.ExecContext(ctx,
		`INSERT INTO patterns (run_id, stage, pattern_rank, length, num_seqlets) VALUES (?, ?, ?, ?, ?)`,
		runID, stage, rank, p.Len(), p.NumSeqlets())
	if err != nil {
		return fmt.Errorf("inserting pattern: %w", err)
	}
	patternID, err := ans.LastInsertId()
	if err != nil {
		return err
	}
	for _, a := range p.Aligned() {
		c := a.Seqlet.Coordinate
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pattern_seqlets (pattern_id, example_idx, start_pos, end_pos, revcomp, seqlet_offset) VALUES (?, ?, ?, ?, ?, ?)`,
			patternID, c.ExampleIdx, c.Start, c.End, c.RevComp, a.Offset); err != nil {
			return fmt.Errorf("inserting pattern seqlet: %w", err)
		}
	}
	for _, name := range p.TrackNames() {
		blob, err := encodeTrack(p.Track(name))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pattern_tracks (pattern_id, name, data) VALUES (?, ?, ?)`,
			patternID, name, blob); err != nil {
			return fmt.Errorf("inserting pattern track: %w", err)
		}
	}
	return nil
}

// ListRuns returns every stored run, newest first
func (r *ResultsStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, success, state, total_time_ms, created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows, nil)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner, config *string) (RunSummary, error) {
	var run RunSummary
	var ms int64
	var created string
	dest := []interface{}{&run.ID, &run.Name, &run.Success, &run.State, &ms, &created}
	if config != nil {
		dest = append(dest, config)
	}
	if err := row.Scan(dest...); err != nil {
		return run, err
	}
	run.TotalTime = time.Duration(ms) * time.Millisecond
	run.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return run, nil
}

// LoadResults reads a run back with all its patterns and cluster assignments
func (r *ResultsStore) LoadResults(ctx context.Context, runID int64) (*StoredRun, error) {
	ans := &StoredRun{}
	var err error
	ans.RunSummary, err = scanRun(r.db.QueryRowContext(ctx,
		`SELECT id, name, success, state, total_time_ms, created_at, config FROM runs WHERE id = ?`,
		runID), &ans.Config)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stage, pattern_rank, length FROM patterns WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		var p StoredPattern
		if err := rows.Scan(&id, &p.Stage, &p.Rank, &p.Length); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
		ans.Patterns = append(ans.Patterns, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for k, id := range ids {
		if err := r.loadPattern(ctx, id, &ans.Patterns[k]); err != nil {
			return nil, err
		}
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT example_idx, start_pos, end_pos, revcomp, cluster FROM cluster_results WHERE run_id = ? ORDER BY seqlet_idx`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a StoredAssignment
		if err := rows.Scan(&a.ExampleIdx, &a.Start, &a.End, &a.RevComp, &a.Cluster); err != nil {
			return nil, err
		}
		ans.Clusters = append(ans.Clusters, a)
	}
	return ans, rows.Err()
}

func (r *ResultsStore) loadPattern(ctx context.Context, id int64, p *StoredPattern) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT example_idx, start_pos, end_pos, revcomp, seqlet_offset FROM pattern_seqlets WHERE pattern_id = ? ORDER BY rowid`, id)
	if err != nil {
		return err
	}
	for rows.Next() {
		var s StoredSeqlet
		if err := rows.Scan(&s.ExampleIdx, &s.Start, &s.End, &s.RevComp, &s.Offset); err != nil {
			rows.Close()
			return err
		}
		p.Seqlets = append(p.Seqlets, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT name, data FROM pattern_tracks WHERE pattern_id = ? ORDER BY rowid`, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.Tracks = map[string]*Track{}
	for rows.Next() {
		var name string
		var blob []byte
		if err := rows.Scan(&name, &blob); err != nil {
			return err
		}
		t, err := decodeTrack(name, blob)
		if err != nil {
			return err
		}
		p.Tracks[name] = t
	}
	return rows.Err()
}

// Rebuild cuts the stored seqlets from ts again and reassembles the pattern
func (r *StoredPattern) Rebuild(ts *TrackSet) (*Pattern, error) {
	aligned := make([]AlignedSeqlet, len(r.Seqlets))
	for i, s := range r.Seqlets {
		seqlet, err := ts.CreateSeqlet(s.Coordinate)
		if err != nil {
			return nil, err
		}
		aligned[i] = AlignedSeqlet{Seqlet: seqlet, Offset: s.Offset}
	}
	if len(aligned) == 0 {
		return nil, fmt.Errorf("%w: stored pattern has no seqlets", ErrEmptyInput)
	}
	return FromAligned(aligned), nil
}
