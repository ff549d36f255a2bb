package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelcore/hostelcore/internal/authz"
)

type stubRepository struct {
	rows []Record
	err  error
}

func (s *stubRepository) ListByTarget(ctx context.Context, target string, offset, limit int) ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Record
	for _, rec := range s.rows {
		if rec.Target == target {
			out = append(out, rec)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepository) AllByTarget(ctx context.Context, target string) ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Record
	for _, rec := range s.rows {
		if rec.Target == target {
			out = append(out, rec)
		}
	}
	return out, nil
}

func makeRecords(target string, n int) []Record {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Record{
			ID:         fmt.Sprintf("rec-%d", i),
			Target:     target,
			Action:     ActionUpdate,
			ChangedBy:  int64(i + 1),
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return rows
}

func TestTrailFirstPageWithNext(t *testing.T) {
	repo := &stubRepository{rows: makeRecords("role:gymkhana", 25)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), Filters{Target: "role:gymkhana"})
	require.NoError(t, err)
	assert.Len(t, result.Rows, defaultPageSize)
	assert.Equal(t, 1, result.Paging.Page)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
}

func TestTrailLastPage(t *testing.T) {
	repo := &stubRepository{rows: makeRecords("role:gymkhana", 25)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), Filters{Target: "role:gymkhana", Page: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 5)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Zero(t, result.Paging.NextPage)
}

func TestTrailClampsPageSize(t *testing.T) {
	repo := &stubRepository{rows: makeRecords("user:7", maxPageSize+10)}
	svc := NewService(repo)

	result, err := svc.Trail(context.Background(), Filters{Target: "user:7", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, result.Rows, maxPageSize)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)
}

func TestTrailRequiresTarget(t *testing.T) {
	svc := NewService(&stubRepository{})

	_, err := svc.Trail(context.Background(), Filters{Target: "   "})
	assert.Error(t, err)
}

func TestExportReturnsAllRows(t *testing.T) {
	repo := &stubRepository{rows: makeRecords("role:warden", 3)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), "role:warden")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestWriteCSVCarriesOverridesVerbatim(t *testing.T) {
	rows := []Record{{
		ID:        "rec-1",
		Target:    "role:gymkhana",
		Action:    ActionUpdate,
		ChangedBy: 42,
		Reason:    "budget freeze",
		Before:    authz.Override{},
		After: authz.Override{
			DenyCapabilities: []string{authz.CapEventsCreate},
			Constraints: []authz.ConstraintEntry{
				{Key: authz.ConstraintEventsMaxApprovalAmount, Value: 2000},
			},
		},
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}}

	data, err := WriteCSV(rows)
	require.NoError(t, err)

	out := string(data)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "before_override")
	assert.Contains(t, out, "2025-03-01T09:00:00Z")
	assert.Contains(t, out, `""denyCapabilities"":[""cap.events.create""]`)
	assert.Contains(t, out, `""value"":2000`)
}
