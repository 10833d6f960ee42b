package queries

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type AnalysisTarget struct {
	ID             int64
	TargetKey      string
	Kind           string
	CreatedAt      pgtype.Timestamptz
	LastAnalyzedAt pgtype.Timestamptz
}

type AnalysisSnapshot struct {
	ID              int64
	TargetID        int64
	AnalyzedAt      pgtype.Timestamptz
	Status          string
	Metrics         []byte
	Recommendations []byte
	Warnings        []byte
}

type KeywordRecord struct {
	ID           int64
	TargetID     int64
	Keyword      string
	SearchVolume *int32
	Difficulty   *float64
	Position     *int32
	LastUpdated  pgtype.Timestamptz
}

type MemoryEntry struct {
	ID             int64
	Context        string
	Observation    []byte
	Action         string
	Result         []byte
	CreatedAt      pgtype.Timestamptz
	BaseImportance float64
	Importance     float64
}
