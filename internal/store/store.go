package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"manthan/internal/core"
	"manthan/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

// ErrClusterGone is returned by SplitCluster when the target cluster no
// longer exists. A concurrent pipeline or refiner run already replaced it;
// callers abort that split silently.
var ErrClusterGone = errors.New("store: cluster no longer exists")

// Store is the SQLite-backed article and cluster repository. All multi-row
// writes run inside a transaction; a partial cluster assignment is never
// visible to readers.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the store at dbPath. When the path is not writable,
// for example on a read-only container filesystem, it falls back to an
// in-memory database so the service can keep serving.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "manthan.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Warn("store: data directory not writable, using in-memory database", "path", dbPath, "reason", err.Error())
		return open(":memory:")
	}

	s, err := open(dbPath)
	if err != nil {
		logger.Warn("store: falling back to in-memory database", "path", dbPath, "reason", err.Error())
		return open(":memory:")
	}
	return s, nil
}

func open(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes conflicting writers, which is the
	// consistency floor cluster commits and splits rely on.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// initialize creates the necessary tables and indexes.
func (s *Store) initialize() error {
	clustersTable := `
	CREATE TABLE IF NOT EXISTS news_clusters (
		id TEXT PRIMARY KEY,
		headline TEXT NOT NULL,
		summary TEXT,
		category TEXT,
		main_image_url TEXT,
		created_at DATETIME NOT NULL,
		stats TEXT
	);`

	articlesTable := `
	CREATE TABLE IF NOT EXISTS news_articles (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		source_name TEXT NOT NULL,
		bias TEXT NOT NULL,
		factuality TEXT NOT NULL,
		headline TEXT NOT NULL,
		summary TEXT,
		url TEXT NOT NULL UNIQUE,
		image_url TEXT,
		pub_date DATETIME NOT NULL,
		fetched_at DATETIME NOT NULL,
		cluster_id TEXT REFERENCES news_clusters (id),
		embedding TEXT,
		entities TEXT
	);`

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_cluster ON news_articles (cluster_id);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON news_articles (pub_date DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_articles_unclustered ON news_articles (pub_date) WHERE cluster_id IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_created ON news_clusters (created_at DESC);`,
	}

	stmts := append([]string{clustersTable, articlesTable}, indexes...)
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const articleColumns = `id, source_id, source_name, bias, factuality, headline, summary,
	url, image_url, pub_date, fetched_at, cluster_id, embedding, entities`

// SelectUnclustered returns unassigned articles published within the window,
// oldest first, so earlier reports anchor clusters.
func (s *Store) SelectUnclustered(maxAge time.Duration, limit int) ([]core.Article, error) {
	query := fmt.Sprintf(`
	SELECT %s FROM news_articles
	WHERE cluster_id IS NULL AND pub_date > ?
	ORDER BY pub_date ASC
	LIMIT ?`, articleColumns)

	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := s.db.Query(query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select unclustered articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// PersistEnrichment writes embeddings and entities for the given articles in
// one transaction. Articles without a usable embedding are skipped.
func (s *Store) PersistEnrichment(articles []core.Article) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE news_articles SET embedding = ?, entities = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare enrichment update: %w", err)
	}
	defer stmt.Close()

	for _, article := range articles {
		if !article.HasEmbedding() {
			continue
		}
		embeddingJSON, err := json.Marshal(article.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding for %s: %w", article.ID, err)
		}
		entitiesJSON, err := json.Marshal(article.Entities)
		if err != nil {
			return fmt.Errorf("failed to marshal entities for %s: %w", article.ID, err)
		}
		if _, err := stmt.Exec(string(embeddingJSON), string(entitiesJSON), article.ID); err != nil {
			return fmt.Errorf("failed to persist enrichment for %s: %w", article.ID, err)
		}
	}

	return tx.Commit()
}

// LoadRecentClusters returns clusters created within the window, newest
// first. limit <= 0 means no cap.
func (s *Store) LoadRecentClusters(maxAge time.Duration, limit int) ([]core.Cluster, error) {
	query := `
	SELECT id, headline, summary, category, main_image_url, created_at, stats
	FROM news_clusters
	WHERE created_at > ?
	ORDER BY created_at DESC`
	args := []any{time.Now().UTC().Add(-maxAge)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent clusters: %w", err)
	}
	defer rows.Close()

	var clusters []core.Cluster
	for rows.Next() {
		var c core.Cluster
		var summary, category, imageURL, statsJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.Headline, &summary, &category, &imageURL, &c.CreatedAt, &statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		c.Summary = summary.String
		c.Category = category.String
		c.MainImageURL = imageURL.String
		if statsJSON.Valid && statsJSON.String != "" {
			if err := json.Unmarshal([]byte(statsJSON.String), &c.Stats); err != nil {
				return nil, fmt.Errorf("failed to unmarshal stats for cluster %s: %w", c.ID, err)
			}
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// LoadClusterArticles returns a cluster's member articles, newest pub_date
// first, including embeddings.
func (s *Store) LoadClusterArticles(clusterID string) ([]core.Article, error) {
	query := fmt.Sprintf(`
	SELECT %s FROM news_articles
	WHERE cluster_id = ?
	ORDER BY pub_date DESC`, articleColumns)

	rows, err := s.db.Query(query, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster articles: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// CommitClusters inserts the given clusters and assigns their member
// articles atomically. assignment maps article ID to cluster ID. On any
// error the transaction rolls back and no partial assignment is visible.
func (s *Store) CommitClusters(clusters []core.Cluster, assignment map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertClusters(tx, clusters); err != nil {
		return err
	}
	if err := assignArticles(tx, assignment); err != nil {
		return err
	}

	return tx.Commit()
}

// SplitCluster atomically replaces oldID with the given clusters, moving
// member articles per assignment. When oldID no longer exists it returns
// ErrClusterGone without touching anything; on any other error the old
// cluster survives unchanged.
func (s *Store) SplitCluster(oldID string, replacements []core.Cluster, assignment map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM news_clusters WHERE id = ?`, oldID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check cluster %s: %w", oldID, err)
	}
	if exists == 0 {
		return ErrClusterGone
	}

	if err := insertClusters(tx, replacements); err != nil {
		return err
	}
	if err := assignArticles(tx, assignment); err != nil {
		return err
	}

	// Members not covered by the assignment would orphan; detach them
	// before the delete so the foreign key holds.
	if _, err := tx.Exec(`UPDATE news_articles SET cluster_id = NULL WHERE cluster_id = ?`, oldID); err != nil {
		return fmt.Errorf("failed to detach remaining members of %s: %w", oldID, err)
	}
	if _, err := tx.Exec(`DELETE FROM news_clusters WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("failed to delete cluster %s: %w", oldID, err)
	}

	return tx.Commit()
}

// UpsertArticles inserts or merges articles in one transaction. A re-fetch
// of a known URL always refreshes headline, summary and fetched_at, but
// never clears an image URL that a previous fetch carried. Enrichment and
// cluster assignment on the existing row are preserved.
func (s *Store) UpsertArticles(articles []core.Article) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT INTO news_articles
	(id, source_id, source_name, bias, factuality, headline, summary, url, image_url, pub_date, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		headline = excluded.headline,
		summary = excluded.summary,
		fetched_at = excluded.fetched_at,
		image_url = CASE WHEN excluded.image_url != '' THEN excluded.image_url ELSE news_articles.image_url END`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		_, err := stmt.Exec(a.ID, a.SourceID, a.SourceName, string(a.Bias), string(a.Factuality),
			a.Headline, a.Summary, a.URL, a.ImageURL, a.PubDate.UTC(), a.FetchedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert article %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// Counters summarizes row counts for the stats command.
type Counters struct {
	Articles    int `json:"articles"`
	Unclustered int `json:"unclustered"`
	Clusters    int `json:"clusters"`
}

// Count returns row counts across the store.
func (s *Store) Count() (*Counters, error) {
	c := &Counters{}
	queries := map[string]*int{
		`SELECT COUNT(*) FROM news_articles`:                           &c.Articles,
		`SELECT COUNT(*) FROM news_articles WHERE cluster_id IS NULL`:  &c.Unclustered,
		`SELECT COUNT(*) FROM news_clusters`:                           &c.Clusters,
	}
	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}
	return c, nil
}

func insertClusters(tx *sql.Tx, clusters []core.Cluster) error {
	stmt, err := tx.Prepare(`
	INSERT INTO news_clusters (id, headline, summary, category, main_image_url, created_at, stats)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range clusters {
		statsJSON, err := json.Marshal(c.Stats)
		if err != nil {
			return fmt.Errorf("failed to marshal stats for cluster %s: %w", c.ID, err)
		}
		if _, err := stmt.Exec(c.ID, c.Headline, c.Summary, c.Category, c.MainImageURL, c.CreatedAt.UTC(), string(statsJSON)); err != nil {
			return fmt.Errorf("failed to insert cluster %s: %w", c.ID, err)
		}
	}
	return nil
}

func assignArticles(tx *sql.Tx, assignment map[string]string) error {
	stmt, err := tx.Prepare(`UPDATE news_articles SET cluster_id = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare assignment update: %w", err)
	}
	defer stmt.Close()

	for articleID, clusterID := range assignment {
		res, err := stmt.Exec(clusterID, articleID)
		if err != nil {
			return fmt.Errorf("failed to assign article %s: %w", articleID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("failed to assign article %s: no such article", articleID)
		}
	}
	return nil
}

func scanArticles(rows *sql.Rows) ([]core.Article, error) {
	var articles []core.Article
	for rows.Next() {
		var a core.Article
		var summary, imageURL, clusterID, embeddingJSON, entitiesJSON sql.NullString
		err := rows.Scan(&a.ID, &a.SourceID, &a.SourceName, &a.Bias, &a.Factuality,
			&a.Headline, &summary, &a.URL, &imageURL, &a.PubDate, &a.FetchedAt,
			&clusterID, &embeddingJSON, &entitiesJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.Summary = summary.String
		a.ImageURL = imageURL.String
		if clusterID.Valid {
			id := clusterID.String
			a.ClusterID = &id
		}
		if embeddingJSON.Valid && embeddingJSON.String != "" {
			var vec []float64
			if err := json.Unmarshal([]byte(embeddingJSON.String), &vec); err == nil && len(vec) == core.EmbeddingDim {
				a.Embedding = vec
			}
			// Wrong dimension or malformed JSON: treat as missing, not fatal.
		}
		if entitiesJSON.Valid && entitiesJSON.String != "" {
			var ents []string
			if err := json.Unmarshal([]byte(entitiesJSON.String), &ents); err == nil {
				a.Entities = ents
			}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
