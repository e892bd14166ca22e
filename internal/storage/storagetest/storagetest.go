// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"bytes"
	"context"
	"testing"

	"audio-interviewer/internal/errors"
	"audio-interviewer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStore exercises the session and report repositories and the blob store.
func RunStore(t *testing.T, st storage.Store) {
	t.Run("sessions", func(t *testing.T) { RunSessions(t, st.Sessions()) })
	t.Run("reports", func(t *testing.T) { RunReports(t, st.Reports()) })
	t.Run("blobs", func(t *testing.T) { RunBlobs(t, st.Blobs()) })
	t.Run("ping", func(t *testing.T) { require.NoError(t, st.Ping(context.Background())) })
}

func newSession() *storage.Session {
	return &storage.Session{
		Email:          "user@example.com",
		JobDescription: "Backend role",
		Questions:      []storage.Question{{Text: "What are your strengths?"}},
		Answers:        []storage.Answer{},
	}
}

// RunSessions checks insert, lookup and the version guard on replace.
func RunSessions(t *testing.T, repo storage.SessionRepository) {
	ctx := context.Background()

	session := newSession()
	require.NoError(t, repo.Insert(ctx, session))
	require.NotEmpty(t, session.ID)
	assert.Equal(t, int64(1), session.Version)

	loaded, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Email, loaded.Email)
	assert.Equal(t, session.Questions, loaded.Questions)
	assert.Equal(t, 0, loaded.CurrentIndex)

	stale := loaded.Clone()

	loaded.Answers = append(loaded.Answers, storage.Answer{
		Question:   "What are your strengths?",
		Transcript: "Go and distributed systems",
		AudioURL:   storage.AudioURL("abc"),
	})
	loaded.CurrentIndex = 1
	require.NoError(t, repo.Replace(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	stale.Questions = append(stale.Questions, storage.Question{Text: "lost update"})
	err = repo.Replace(ctx, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConflict))

	current, err := repo.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentIndex)
	assert.Len(t, current.Questions, 1)
	assert.Len(t, current.Answers, 1)
	assert.Equal(t, "Go and distributed systems", current.Answers[0].Transcript)
	assert.Equal(t, int64(2), current.Version)

	_, err = repo.FindByID(ctx, "not-a-valid-id")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

// RunReports checks report insertion and the three lookups.
func RunReports(t *testing.T, repo storage.ReportRepository) {
	ctx := context.Background()

	first := &storage.Report{
		SessionID:         "session-1",
		Email:             "user@example.com",
		JobDescription:    "Backend role",
		CandidateFitScore: 82,
		Strengths:         []string{"clear communication"},
		ImprovementAreas:  []string{"system design depth"},
		SuggestedFollowUp: []string{"Describe a scaling incident"},
		Answers:           []storage.Answer{{Question: "q1", Transcript: "a1", AudioURL: "/api/audio/1"}},
	}
	require.NoError(t, repo.Insert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &storage.Report{
		SessionID: "session-2",
		Email:     "user@example.com",
		Answers:   []storage.Answer{},
	}
	require.NoError(t, repo.Insert(ctx, second))

	dup := &storage.Report{SessionID: "session-1", Email: "user@example.com"}
	err := repo.Insert(ctx, dup)
	assert.True(t, errors.Is(err, storage.ErrConflict))

	loaded, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 82, loaded.CandidateFitScore)
	assert.Equal(t, first.Strengths, loaded.Strengths)
	assert.Equal(t, first.Answers, loaded.Answers)

	bySession, err := repo.FindBySession(ctx, "session-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, bySession.ID)

	byEmail, err := repo.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Len(t, byEmail, 2)

	none, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	loaded.CandidateFitScore = 90
	require.NoError(t, repo.Replace(ctx, loaded))
	reloaded, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, reloaded.CandidateFitScore)

	_, err = repo.FindByID(ctx, "zzz")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	_, err = repo.FindBySession(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

// RunBlobs checks byte-identical round trips and deletion.
func RunBlobs(t *testing.T, blobs storage.BlobStore) {
	ctx := context.Background()

	payload := bytes.Repeat([]byte{0x1a, 0x45, 0xdf, 0xa3, 0x00, 0xff}, 4096)
	id, err := blobs.Upload(ctx, "answer_1.webm", payload)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := blobs.Download(ctx, id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payload, got))

	require.NoError(t, blobs.Delete(ctx, id))
	_, err = blobs.Download(ctx, id)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	for _, empty := range [][]byte{{}, nil} {
		id, err := blobs.Upload(ctx, "answer_2.webm", empty)
		require.NoError(t, err)
		got, err := blobs.Download(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}
