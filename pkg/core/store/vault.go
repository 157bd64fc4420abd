package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no stored report matches the lookup.
var ErrNotFound = errors.New("report not found")

// ReportRecord is one stored analysis report. Report holds the encoded
// report itself; the other fields are kept alongside for lookup.
type ReportRecord struct {
	ID           string          `json:"id"`
	Entity       string          `json:"entity"`
	RulesVersion string          `json:"rules_version"`
	ContentHash  string          `json:"content_hash"`
	Status       string          `json:"status"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Report       json.RawMessage `json:"report"`
}

// ReportVault stores reports in a hybrid vault: Postgres (primary) when a
// pool is configured, otherwise JSON files in a directory.
type ReportVault struct {
	pool    *pgxpool.Pool
	fileDir string
	log     zerolog.Logger
}

// NewReportVault creates a vault. With a nil pool and empty dir it
// defaults to .cache/reports.
func NewReportVault(pool *pgxpool.Pool, dir string, log zerolog.Logger) *ReportVault {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "reports")
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("report vault directory unavailable")
		}
	}
	return &ReportVault{pool: pool, fileDir: dir, log: log}
}

// Save stores rec, replacing any record with the same ID.
func (v *ReportVault) Save(ctx context.Context, rec *ReportRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("save report: missing id")
	}

	if v.pool != nil {
		query := `
			INSERT INTO analysis_reports (id, entity, rules_version, content_hash, status, report, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id)
			DO UPDATE SET
				report = EXCLUDED.report,
				status = EXCLUDED.status,
				generated_at = EXCLUDED.generated_at
		`
		_, err := v.pool.Exec(ctx, query,
			rec.ID, rec.Entity, rec.RulesVersion, rec.ContentHash, rec.Status, []byte(rec.Report), rec.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save report to db: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report record: %w", err)
	}
	if err := os.WriteFile(v.path(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to save report to file: %w", err)
	}
	return nil
}

// Get returns the report stored under id. Report IDs are UUIDs; anything
// else cannot match a stored record.
func (v *ReportVault) Get(ctx context.Context, id string) (*ReportRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	if v.pool != nil {
		query := `
			SELECT id::text, entity, rules_version, content_hash, status, report, generated_at
			FROM analysis_reports
			WHERE id = $1
		`
		rec, err := scanRecord(v.pool.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return rec, err
	}

	rec, err := v.loadFile(v.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return rec, err
}

// GetByHash returns the newest report computed from the given content hash.
func (v *ReportVault) GetByHash(ctx context.Context, hash string) (*ReportRecord, error) {
	if v.pool != nil {
		query := `
			SELECT id::text, entity, rules_version, content_hash, status, report, generated_at
			FROM analysis_reports
			WHERE content_hash = $1
			ORDER BY generated_at DESC
			LIMIT 1
		`
		rec, err := scanRecord(v.pool.QueryRow(ctx, query, hash))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return rec, err
	}

	// file fallback scans the directory
	records, err := v.scanFiles()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ContentHash == hash {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

// List returns stored reports, newest first, up to limit (0 = all).
func (v *ReportVault) List(ctx context.Context, limit int) ([]*ReportRecord, error) {
	if v.pool != nil {
		query := `
			SELECT id::text, entity, rules_version, content_hash, status, report, generated_at
			FROM analysis_reports
			ORDER BY generated_at DESC
		`
		args := []any{}
		if limit > 0 {
			query += " LIMIT $1"
			args = append(args, limit)
		}
		rows, err := v.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		defer rows.Close()

		var out []*ReportRecord
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, rows.Err()
	}

	records, err := v.scanFiles()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*ReportRecord, error) {
	var (
		rec    ReportRecord
		report []byte
	)
	if err := row.Scan(&rec.ID, &rec.Entity, &rec.RulesVersion, &rec.ContentHash, &rec.Status, &report, &rec.GeneratedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	rec.Report = report
	return &rec, nil
}

// Internal File Helpers

func (v *ReportVault) path(id string) string {
	safe := strings.NewReplacer("/", "", "\\", "", "..", "").Replace(id)
	return filepath.Join(v.fileDir, safe+".json")
}

func (v *ReportVault) loadFile(path string) (*ReportRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec ReportRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

func (v *ReportVault) scanFiles() ([]*ReportRecord, error) {
	entries, err := os.ReadDir(v.fileDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read vault dir: %w", err)
	}

	var out []*ReportRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := v.loadFile(filepath.Join(v.fileDir, e.Name()))
		if err != nil {
			v.log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable report")
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return out, nil
}
