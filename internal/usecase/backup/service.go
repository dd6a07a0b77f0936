package backup

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

const (
	defaultBatchSize = 512
	formatVersion    = 1

	TableWords       = "words"
	TableProgress    = "user_progress"
	TableSessionLogs = "session_logs"
)

// tableOrder is the export and restore order; progress rows reference words.
var tableOrder = []string{TableWords, TableProgress, TableSessionLogs}

var errNoTablesSelected = errors.New("backup: no tables selected")

type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

// Service streams the catalog, progress records and session logs as NDJSON.
type Service struct {
	catalog   repository.CatalogRepository
	progress  repository.ProgressRepository
	sessions  repository.SessionRepository
	batchSize int
	clock     func() time.Time
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service over the repositories.
func NewService(catalog repository.CatalogRepository, progress repository.ProgressRepository, sessions repository.SessionRepository, opts ...Option) *Service {
	svc := &Service{
		catalog:   catalog,
		progress:  progress,
		sessions:  sessions,
		batchSize: defaultBatchSize,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	tables   []string
	reporter ProgressReporter
}

// WithTables restricts export to the provided table names.
func WithTables(tables []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	tables []string
}

// WithImportTables restricts import to the provided table names.
func WithImportTables(tables []string) ImportOption {
	return func(cfg *importConfig) {
		if len(tables) == 0 {
			return
		}
		cfg.tables = append([]string{}, tables...)
	}
}

// ImportStats counts restored rows per table. Session logs that already
// exist are skipped.
type ImportStats struct {
	Rows    map[string]int
	Skipped map[string]int
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	SchemaHash string         `json:"schema_hash,omitempty"`
	Tables     []string       `json:"tables,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	ExportedAt *time.Time      `json:"exported_at"`
	SchemaHash string          `json:"schema_hash"`
	Tables     []string        `json:"tables"`
	RowCounts  map[string]int  `json:"row_counts"`
	Payload    json.RawMessage `json:"payload"`
}

// snapshot holds everything selected for export so row counts can be
// written in the meta record first.
type snapshot struct {
	words    []*entity.CatalogWord
	progress []*entity.ProgressRecord
	sessions []*entity.SessionLog
}

func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := selectTables(cfg.tables)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	snap, err := s.collect(ctx, tables)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, tbl := range tables {
		counts[tbl] = snap.count(tbl)
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := s.clock().UTC()
	meta := record{
		Type:       "meta",
		Version:    formatVersion,
		ExportedAt: &now,
		SchemaHash: schemaHash(),
		Tables:     tables,
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, tbl := range tables {
		reporter.StartTable(tbl, counts[tbl])
		payloads := snap.payloads(tbl)
		for _, payload := range payloads {
			if err := writeRecord(writer, record{Type: tbl, Payload: payload}); err != nil {
				return err
			}
			reporter.Increment(tbl, 1)
		}
		reporter.FinishTable(tbl)
	}
	return writer.Flush()
}

func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) (*ImportStats, error) {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	tables, err := selectTables(cfg.tables)
	if err != nil {
		return nil, err
	}
	wanted := lo.SliceToMap(tables, func(t string) (string, struct{}) { return t, struct{}{} })

	stats := &ImportStats{Rows: map[string]int{}, Skipped: map[string]int{}}
	var pendingWords []*entity.CatalogWord
	flushWords := func() error {
		if len(pendingWords) == 0 {
			return nil
		}
		n, err := s.catalog.Upsert(ctx, pendingWords)
		if err != nil {
			return fmt.Errorf("restore words: %w", err)
		}
		stats.Rows[TableWords] += n
		pendingWords = pendingWords[:0]
		return nil
	}

	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     rawRecord
	)
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("decode record: %w", err)
			}

			if rec.Type == "meta" {
				metaSeen = true
				meta = rec
				if meta.Version != formatVersion {
					return nil, fmt.Errorf("backup: unsupported format version %d", meta.Version)
				}
			} else if _, ok := wanted[rec.Type]; ok {
				if !metaSeen {
					return nil, errors.New("backup: missing meta record")
				}
				if len(rec.Payload) == 0 {
					return nil, fmt.Errorf("backup: missing payload for table %s", rec.Type)
				}
				if rec.Type != TableWords {
					if err := flushWords(); err != nil {
						return nil, err
					}
				}
				if err := s.importRow(ctx, rec, &pendingWords, stats); err != nil {
					return nil, err
				}
				if len(pendingWords) >= s.batchSize {
					if err := flushWords(); err != nil {
						return nil, err
					}
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return nil, errors.New("backup: missing meta record")
	}
	if err := flushWords(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) importRow(ctx context.Context, rec rawRecord, pendingWords *[]*entity.CatalogWord, stats *ImportStats) error {
	switch rec.Type {
	case TableWords:
		var word entity.CatalogWord
		if err := json.Unmarshal(rec.Payload, &word); err != nil {
			return fmt.Errorf("decode payload for %s: %w", rec.Type, err)
		}
		*pendingWords = append(*pendingWords, &word)
	case TableProgress:
		var progress entity.ProgressRecord
		if err := json.Unmarshal(rec.Payload, &progress); err != nil {
			return fmt.Errorf("decode payload for %s: %w", rec.Type, err)
		}
		if !progress.State.Valid() {
			return fmt.Errorf("backup: %s/%s: %w", progress.UserID, progress.WordID, entity.ErrInvalidState)
		}
		if !entity.ValidReviewInterval(progress.ReviewInterval) {
			progress.ReviewInterval = entity.ReviewIntervals[0]
		}
		if progress.State != entity.StateReady {
			progress.NextReviewDate = nil
		}
		if _, err := s.progress.Upsert(ctx, &progress); err != nil {
			return fmt.Errorf("restore progress %s/%s: %w", progress.UserID, progress.WordID, err)
		}
		stats.Rows[rec.Type]++
	case TableSessionLogs:
		var log entity.SessionLog
		if err := json.Unmarshal(rec.Payload, &log); err != nil {
			return fmt.Errorf("decode payload for %s: %w", rec.Type, err)
		}
		err := s.sessions.Save(ctx, &log)
		switch {
		case errors.Is(err, entity.ErrDuplicate):
			stats.Skipped[rec.Type]++
		case err != nil:
			return fmt.Errorf("restore session log %s: %w", log.ID, err)
		default:
			stats.Rows[rec.Type]++
		}
	}
	return nil
}

func (s *Service) collect(ctx context.Context, tables []string) (*snapshot, error) {
	snap := &snapshot{}
	if lo.Contains(tables, TableWords) {
		words, err := s.catalog.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list words: %w", err)
		}
		snap.words = words
	}

	needProgress := lo.Contains(tables, TableProgress)
	needSessions := lo.Contains(tables, TableSessionLogs)
	if !needProgress && !needSessions {
		return snap, nil
	}
	users, err := s.progress.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, userID := range users {
		if needProgress {
			records, err := s.userProgress(ctx, userID)
			if err != nil {
				return nil, err
			}
			snap.progress = append(snap.progress, records...)
		}
		if needSessions {
			logs, err := s.sessions.ListByUser(ctx, userID, 0)
			if err != nil {
				return nil, fmt.Errorf("list session logs for %s: %w", userID, err)
			}
			snap.sessions = append(snap.sessions, logs...)
		}
	}
	return snap, nil
}

// userProgress pages through one user's records in word order.
func (s *Service) userProgress(ctx context.Context, userID string) ([]*entity.ProgressRecord, error) {
	var out []*entity.ProgressRecord
	for page := int32(1); ; page++ {
		items, total, err := s.progress.List(ctx, &repository.ListProgressQuery{
			Pagination: repository.Pagination{PageNo: page, PageSize: int32(s.batchSize)},
			UserID:     userID,
			PrimaryKey: string(repository.OrderByWordID),
		})
		if err != nil {
			return nil, fmt.Errorf("list progress for %s: %w", userID, err)
		}
		out = append(out, items...)
		if len(items) < s.batchSize || int64(len(out)) >= total {
			return out, nil
		}
	}
}

func (s *snapshot) count(table string) int {
	switch table {
	case TableWords:
		return len(s.words)
	case TableProgress:
		return len(s.progress)
	case TableSessionLogs:
		return len(s.sessions)
	default:
		return 0
	}
}

func (s *snapshot) payloads(table string) []any {
	switch table {
	case TableWords:
		return lo.Map(s.words, func(w *entity.CatalogWord, _ int) any { return w })
	case TableProgress:
		return lo.Map(s.progress, func(p *entity.ProgressRecord, _ int) any { return p })
	case TableSessionLogs:
		return lo.Map(s.sessions, func(l *entity.SessionLog, _ int) any { return l })
	default:
		return nil
	}
}

func selectTables(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return append([]string{}, tableOrder...), nil
	}
	set := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		n := strings.TrimSpace(strings.ToLower(name))
		if n == "" {
			continue
		}
		if !lo.Contains(tableOrder, n) {
			return nil, fmt.Errorf("backup: unsupported table %q", name)
		}
		set[n] = struct{}{}
	}
	if len(set) == 0 {
		return nil, errNoTablesSelected
	}
	return lo.Filter(tableOrder, func(t string, _ int) bool {
		_, ok := set[t]
		return ok
	}), nil
}

// schemaHash fingerprints the payload shapes so restores can tell which
// layout a file was written with.
func schemaHash() string {
	h := sha256.New()
	for _, v := range []any{entity.CatalogWord{}, entity.ProgressRecord{}, entity.SessionLog{}} {
		raw, _ := json.Marshal(v)
		var fields map[string]any
		_ = json.Unmarshal(raw, &fields)
		keys := lo.Keys(fields)
		sort.Strings(keys)
		fmt.Fprintf(h, "%T:%s;", v, strings.Join(keys, ","))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeRecord(w io.Writer, rec record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
