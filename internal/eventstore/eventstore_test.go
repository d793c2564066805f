package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_AppendAndRetrieve(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	require.NoError(t, s.Append(ctx, "b1", TypeBuildStarted, []byte(`{"mode":"full"}`), map[string]string{"k": "v"}))
	require.NoError(t, s.Append(ctx, "b1", TypeStateEntered, []byte(`{"state":"scanning"}`), nil))

	events, err := s.GetByBuildID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeBuildStarted, events[0].Type())
	assert.Equal(t, "v", events[0].Metadata()["k"])
	assert.Nil(t, events[1].Metadata())

	inRange, err := s.GetRange(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)
}

func TestSQLiteStore_RecentBuildIDs(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()
	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, s.Append(ctx, id, TypeBuildStarted, []byte(`{}`), nil))
	}
	require.NoError(t, s.Append(ctx, "b1", TypeBuildCompleted, []byte(`{}`), nil))

	ids, err := s.RecentBuildIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b3"}, ids)
}

func TestSince_SummarizesBuildsActiveInWindow(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) { s.now = func() time.Time { return base.Add(d) } }

	at(0)
	require.NoError(t, s.Append(ctx, "old", TypeBuildStarted, []byte(`{"mode":"full"}`), nil))
	require.NoError(t, s.Append(ctx, "long", TypeBuildStarted, []byte(`{"mode":"incremental"}`), nil))
	at(2 * time.Hour)
	require.NoError(t, s.Append(ctx, "long", TypeBuildCompleted, []byte(`{"status":"succeeded"}`), nil))
	at(3 * time.Hour)
	require.NoError(t, s.Append(ctx, "new", TypeBuildStarted, []byte(`{"mode":"full"}`), nil))

	got, err := Since(ctx, s, base.Add(time.Hour), base.Add(4*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].BuildID)
	assert.Equal(t, "long", got[1].BuildID)
	assert.Equal(t, "incremental", got[1].Mode, "summary includes events before the window")
	assert.Equal(t, StatusSucceeded, got[1].Status)

	limited, err := Since(ctx, s, base.Add(-time.Hour), base.Add(4*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].BuildID)
}

type fakePublisher struct {
	msgs   []BuildFinished
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, msg BuildFinished) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakePublisher) Close() { f.closed = true }

func TestJournal_RecordsAndSummarizes(t *testing.T) {
	s := newStore(t)
	pub := &fakePublisher{}
	j := NewJournal(s, pub, nil)
	ctx := t.Context()

	j.Started(ctx, "b1", BuildStarted{Mode: "incremental", Workers: 2, Revision: "abc"})
	j.Entered(ctx, "b1", "scanning")
	j.Entered(ctx, "b1", "writing")
	j.Finished(ctx, BuildFinished{
		BuildID: "b1", Status: StatusSucceeded, Mode: "incremental", DurationMS: 1500,
		FinishedAt: time.Now(), Counts: Counts{Added: 2, Routes: 7},
	})

	j.Started(ctx, "b2", BuildStarted{Mode: "full"})
	j.Entered(ctx, "b2", "processing")

	summaries, err := Recent(ctx, s, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	running := summaries[0]
	assert.Equal(t, "b2", running.BuildID)
	assert.Equal(t, StatusRunning, running.Status)
	assert.Equal(t, "processing", running.LastState)

	done := summaries[1]
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, "incremental", done.Mode)
	assert.Equal(t, "abc", done.Revision)
	assert.Equal(t, "writing", done.LastState)
	assert.Equal(t, 1500*time.Millisecond, done.Duration)
	assert.Equal(t, Counts{Added: 2, Routes: 7}, done.Counts)

	require.Len(t, pub.msgs, 1)
	require.NoError(t, j.Close())
	assert.True(t, pub.closed)
}

func TestJournal_FailuresAreNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("down")}
	j := NewJournal(nil, pub, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Finished(ctx, BuildFinished{BuildID: "b", Status: StatusFailed, Error: "boom"})
	assert.Len(t, pub.msgs, 1)

	var nilJournal *Journal
	nilJournal.Started(ctx, "b", BuildStarted{})
	nilJournal.Finished(ctx, BuildFinished{})
	assert.NoError(t, nilJournal.Close())
}

func TestNATSPublisher_Subject(t *testing.T) {
	p := &NATSPublisher{subject: "assetbuilder.builds"}
	assert.Equal(t, "assetbuilder.builds.completed", p.Subject(BuildFinished{Status: StatusSucceeded}))
	assert.Equal(t, "assetbuilder.builds.failed", p.Subject(BuildFinished{Status: StatusFailed}))
}
