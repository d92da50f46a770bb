package sprintzero

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// SessionSource lists recorded sessions, newest first. Implementations
// backed by a remote document store live outside this module.
type SessionSource interface {
	Sessions(ctx context.Context, limit int) ([]SessionDocument, error)
}

// SessionDocument is a stored training session: sprint metadata plus one
// compressed CompactCurvePayload blob per sprint, keyed by sprint ID.
type SessionDocument struct {
	ID          string            `json:"_id"`
	SessionDate time.Time         `json:"sessionDate"`
	Sprints     []SprintEntry     `json:"sprints"`
	Curves      map[string][]byte `json:"curves"`
}

// Records maps the session's sprints to records in document order. A sprint
// without a stored curve blob yields a record with no curves. Positions
// start at offset.
func (d SessionDocument) Records(offset int) []SprintRecord {
	date := "unknown"
	if !d.SessionDate.IsZero() {
		date = d.SessionDate.Format("2006-01-02")
	}
	records := make([]SprintRecord, 0, len(d.Sprints))
	for i, s := range d.Sprints {
		records = append(records, SprintRecord{
			Position:     offset + i,
			Date:         date,
			Distance:     s.Distance,
			CurvePayload: d.Curves[s.ID],
			Meta:         s.Meta(),
		})
	}
	return records
}

// SessionRecords fetches up to limit sessions and flattens them into one
// record list.
func SessionRecords(ctx context.Context, src SessionSource, limit int) ([]SprintRecord, error) {
	docs, err := src.Sessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	var records []SprintRecord
	for _, doc := range docs {
		records = append(records, doc.Records(len(records))...)
	}
	return records, nil
}

// FileSessionSource serves session documents exported as a JSON array.
type FileSessionSource struct {
	Path string
}

// Sessions implements SessionSource. A non-positive limit returns all sessions.
func (s FileSessionSource) Sessions(ctx context.Context, limit int) ([]SessionDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}
	var docs []SessionDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode sessions file: %w", err)
	}
	return SortSessions(docs, limit), nil
}

// SortSessions orders docs newest first in place and keeps at most limit of
// them. A non-positive limit keeps all.
func SortSessions(docs []SessionDocument, limit int) []SessionDocument {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].SessionDate.After(docs[j].SessionDate)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}
