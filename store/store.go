package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"productauth/types"
)

// Store keeps an audit log of comparisons in a sqlite database so past
// authentication decisions can be reviewed. The similarity core never
// depends on it; only the CLI writes to it when asked.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the comparison database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS comparisons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image1_path TEXT NOT NULL,
		image2_path TEXT NOT NULL,
		similarity_score REAL,
		is_match INTEGER,
		threshold REAL,
		counterfeit_risk TEXT,
		color_score REAL,
		sift_score REAL,
		ssim_score REAL,
		edge_score REAL,
		shape_score REAL,
		error TEXT,
		created_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_image1_path ON comparisons(image1_path);
	CREATE INDEX IF NOT EXISTS idx_created_at ON comparisons(created_at);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create comparisons schema: %v", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport records one comparison outcome. Error reports are stored
// too, with their paths and error text, so failed batch slots stay
// auditable.
func (s *Store) SaveReport(path1, path2 string, report *types.ComparisonReport) error {
	stmt, err := s.db.Prepare(`
		INSERT INTO comparisons (
			image1_path, image2_path, similarity_score, is_match, threshold,
			counterfeit_risk, color_score, sift_score, ssim_score, edge_score, shape_score,
			error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cannot prepare comparison insert: %v", err)
	}
	defer stmt.Close()

	risk := ""
	if report.Analysis != nil {
		risk = report.Analysis.CounterfeitRisk
	}

	_, err = stmt.Exec(
		path1,
		path2,
		report.SimilarityScore,
		report.IsMatch,
		report.Threshold,
		risk,
		report.DetailedScores[types.MetricColor],
		report.DetailedScores[types.MetricKeypoint],
		report.DetailedScores[types.MetricStructural],
		report.DetailedScores[types.MetricEdge],
		report.DetailedScores[types.MetricShape],
		report.Error,
		time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cannot insert comparison for %s vs %s: %v", path1, path2, err)
	}

	return nil
}

// Stats summarizes the stored comparison history.
type Stats struct {
	TotalComparisons int
	Matches          int
	Errors           int
	AverageScore     float64
}

// GetStats returns summary statistics over all stored comparisons.
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	err := s.db.QueryRow("SELECT COUNT(*) FROM comparisons").Scan(&stats.TotalComparisons)
	if err != nil {
		return nil, fmt.Errorf("failed to count comparisons: %v", err)
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM comparisons WHERE is_match = 1").Scan(&stats.Matches)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %v", err)
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM comparisons WHERE error != ''").Scan(&stats.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to count errors: %v", err)
	}

	err = s.db.QueryRow("SELECT COALESCE(AVG(similarity_score), 0) FROM comparisons WHERE error = ''").Scan(&stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("failed to average scores: %v", err)
	}

	return &stats, nil
}
