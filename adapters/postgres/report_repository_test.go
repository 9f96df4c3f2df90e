package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/internal/errors"
)

func newTestRepository(t *testing.T) *ReportRepositoryImpl {
	t.Helper()
	db, err := Open(context.Background(), "", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewReportRepository(db)
	clock := time.UnixMilli(1_700_000_000_000)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func report(seed string, p float64) *study.Report {
	return &study.Report{
		ID:         core.NewReportID(core.NewFingerprint([]byte(seed))),
		Mode:       study.ModeFull,
		ConditionA: "C1",
		ConditionB: "C2",
		Participants: []study.ParticipantRecord{
			{ParticipantID: "P1", Delta: 2},
			{ParticipantID: "P2", Delta: -1},
		},
		MainTest: study.TestResult{
			Outcome:       study.OK(),
			Kind:          study.TestWilcoxon,
			NonParametric: &study.WilcoxonTest{W: 3, Z: 0.5, P: p, N: 2},
			PValue:        p,
		},
		Notes: []string{"seed " + seed},
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	r := report("a", 0.2)

	require.NoError(t, repo.Save(ctx, r))
	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestSaveUpsertsByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, report("a", 0.2)))
	require.NoError(t, repo.Save(ctx, report("a", 0.3)))

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].PValue)
	assert.Equal(t, 0.3, *list[0].PValue)
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, second := report("first", 0.1), report("second", 0.4)
	second.MainTest = study.TestResult{Outcome: study.Outcome{Status: study.StatusInsufficient}}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[0].PValue)
	assert.Equal(t, study.StatusInsufficient, list[0].MainStatus)
	assert.Equal(t, 2, list[1].Participants)
	assert.Equal(t, study.TestWilcoxon, list[1].MainTest)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	limited, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Get(context.Background(), core.NewReportID("nothing"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
