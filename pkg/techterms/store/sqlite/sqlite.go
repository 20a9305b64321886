package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/techterms/pkg/techterms/cluster"
	"github.com/cognicore/techterms/pkg/techterms/internalerr"
	"github.com/cognicore/techterms/pkg/techterms/store"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w: %w", internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w: %w", internalerr.ErrStoreUnavailable, err)
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	documents INTEGER NOT NULL,
	min_sources INTEGER NOT NULL,
	clustered INTEGER NOT NULL DEFAULT 0,
	num_clusters INTEGER NOT NULL DEFAULT 0,
	silhouette REAL NOT NULL DEFAULT 0,
	algorithm TEXT,
	unclusterable TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_terms (
	run_id TEXT NOT NULL,
	term_key TEXT NOT NULL,
	term TEXT NOT NULL,
	count INTEGER NOT NULL,
	num_sources INTEGER NOT NULL,
	sources TEXT,
	signals TEXT,
	forms TEXT,
	status TEXT NOT NULL,
	reason TEXT,
	PRIMARY KEY(run_id, term_key),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_terms_key ON run_terms(term_key);

CREATE TABLE IF NOT EXISTS run_clusters (
	run_id TEXT NOT NULL,
	cluster_id INTEGER NOT NULL,
	label TEXT,
	centroid_nearest TEXT,
	PRIMARY KEY(run_id, cluster_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS run_cluster_terms (
	run_id TEXT NOT NULL,
	cluster_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	term TEXT NOT NULL,
	PRIMARY KEY(run_id, cluster_id, position),
	FOREIGN KEY(run_id, cluster_id) REFERENCES run_clusters(run_id, cluster_id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun writes a run and all its terms and clusters in one transaction.
func (s *sqliteStore) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("save run: empty id: %w", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	unclusterable := "null"
	var (
		clustered   int
		numClusters int
		silhouette  float64
		algorithm   string
	)
	if r.Clustering != nil {
		clustered = 1
		numClusters = r.Clustering.NumClusters
		silhouette = r.Clustering.SilhouetteScore
		algorithm = r.Clustering.Algorithm
		if unclusterable, err = encodeList(r.Clustering.Unclusterable); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, created_at, documents, min_sources, clustered, num_clusters, silhouette, algorithm, unclusterable)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		r.ID,
		r.CreatedAt.UTC().Format(timeLayout),
		r.Documents,
		r.MinSources,
		clustered,
		numClusters,
		silhouette,
		algorithm,
		unclusterable,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}

	if err := insertTerms(ctx, tx, r.ID, r.Terms); err != nil {
		return err
	}
	if r.Clustering != nil {
		if err := insertClusters(ctx, tx, r.ID, r.Clustering.Clusters); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertTerms(ctx context.Context, tx *sql.Tx, runID string, terms []store.TermRecord) error {
	if len(terms) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_terms (run_id, term_key, term, count, num_sources, sources, signals, forms, status, reason)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range terms {
		sources, err := encodeList(t.Sources)
		if err != nil {
			return err
		}
		signals, err := encodeList(t.Signals)
		if err != nil {
			return err
		}
		forms, err := encodeList(t.Forms)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, t.Key, t.Term, t.Count, t.NumSources(), sources, signals, forms, t.Status, t.Reason); err != nil {
			return fmt.Errorf("save term %q: %w", t.Key, err)
		}
	}
	return nil
}

func insertClusters(ctx context.Context, tx *sql.Tx, runID string, clusters []cluster.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	clusterStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_clusters (run_id, cluster_id, label, centroid_nearest) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer clusterStmt.Close()

	termStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_cluster_terms (run_id, cluster_id, position, term) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer termStmt.Close()

	for _, c := range clusters {
		if _, err := clusterStmt.ExecContext(ctx, runID, c.ID, c.SuggestedLabel, c.CentroidNearest); err != nil {
			return err
		}
		for pos, term := range c.Terms {
			if _, err := termStmt.ExecContext(ctx, runID, c.ID, pos, term); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRun loads a run with its terms and clusters
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	var (
		r             store.Run
		createdAt     string
		clustered     int
		numClusters   int
		silhouette    float64
		algorithm     sql.NullString
		unclusterable sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, documents, min_sources, clustered, num_clusters, silhouette, algorithm, unclusterable
FROM runs WHERE id = ?;
`, id).Scan(&r.ID, &createdAt, &r.Documents, &r.MinSources, &clustered, &numClusters, &silhouette, &algorithm, &unclusterable)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return store.Run{}, false, err
	}

	if r.Terms, err = s.loadTerms(ctx, id); err != nil {
		return store.Run{}, false, err
	}

	if clustered == 1 {
		res := &cluster.Result{
			NumClusters:     numClusters,
			SilhouetteScore: silhouette,
			Algorithm:       algorithm.String,
		}
		if res.Unclusterable, err = decodeList(unclusterable); err != nil {
			return store.Run{}, false, err
		}
		if res.Clusters, err = s.loadClusters(ctx, id); err != nil {
			return store.Run{}, false, err
		}
		r.Clustering = res
	}
	return r, true, nil
}

func (s *sqliteStore) loadTerms(ctx context.Context, runID string) ([]store.TermRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT term_key, term, count, sources, signals, forms, status, reason
FROM run_terms WHERE run_id = ?
ORDER BY term_key;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []store.TermRecord
	for rows.Next() {
		var (
			t                       store.TermRecord
			sources, signals, forms sql.NullString
			reason                  sql.NullString
		)
		if err := rows.Scan(&t.Key, &t.Term, &t.Count, &sources, &signals, &forms, &t.Status, &reason); err != nil {
			return nil, err
		}
		if t.Sources, err = decodeList(sources); err != nil {
			return nil, err
		}
		if t.Signals, err = decodeList(signals); err != nil {
			return nil, err
		}
		if t.Forms, err = decodeList(forms); err != nil {
			return nil, err
		}
		t.Reason = reason.String
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (s *sqliteStore) loadClusters(ctx context.Context, runID string) ([]cluster.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.cluster_id, c.label, c.centroid_nearest, t.term
FROM run_clusters c
JOIN run_cluster_terms t ON t.run_id = c.run_id AND t.cluster_id = c.cluster_id
WHERE c.run_id = ?
ORDER BY c.cluster_id, t.position;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []cluster.Cluster
	for rows.Next() {
		var (
			id              int
			label, centroid sql.NullString
			term            string
		)
		if err := rows.Scan(&id, &label, &centroid, &term); err != nil {
			return nil, err
		}
		if n := len(clusters); n == 0 || clusters[n-1].ID != id {
			clusters = append(clusters, cluster.Cluster{
				ID:              id,
				SuggestedLabel:  label.String,
				CentroidNearest: centroid.String,
			})
		}
		last := &clusters[len(clusters)-1]
		last.Terms = append(last.Terms, term)
	}
	return clusters, rows.Err()
}

// ListRuns returns run summaries, newest first. limit <= 0 returns all.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.created_at, r.documents, r.min_sources, r.num_clusters,
	(SELECT COUNT(*) FROM run_terms t WHERE t.run_id = r.id),
	(SELECT COUNT(*) FROM run_terms t WHERE t.run_id = r.id AND t.status = ?)
FROM runs r
ORDER BY r.created_at DESC, r.id DESC
LIMIT ?;
`, store.StatusKept, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RunSummary
	for rows.Next() {
		var (
			sum       store.RunSummary
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Documents, &sum.MinSources, &sum.NumClusters, &sum.Candidates, &sum.Kept); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, err
		}
		sum.Removed = sum.Candidates - sum.Kept
		out = append(out, sum)
	}
	return out, rows.Err()
}

// TermHistory returns a term's snapshots across runs, oldest first.
func (s *sqliteStore) TermHistory(ctx context.Context, key string) ([]store.TermSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.created_at, t.term, t.count, t.num_sources, t.status, t.reason
FROM run_terms t
JOIN runs r ON r.id = t.run_id
WHERE t.term_key = ?
ORDER BY r.created_at, r.id;
`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TermSnapshot
	for rows.Next() {
		var (
			snap      store.TermSnapshot
			createdAt string
			reason    sql.NullString
		)
		if err := rows.Scan(&snap.RunID, &createdAt, &snap.Term, &snap.Count, &snap.NumSources, &snap.Status, &reason); err != nil {
			return nil, err
		}
		if snap.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, err
		}
		snap.Reason = reason.String
		out = append(out, snap)
	}
	return out, rows.Err()
}

func encodeList(list []string) (string, error) {
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s sql.NullString) ([]string, error) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
