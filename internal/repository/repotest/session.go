package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/upload"
)

func (suite *Suite) RunSessionTests(t *testing.T) {
	t.Run("CreateAndGet", suite.TestSession_CreateAndGet)
	t.Run("Transition", suite.TestSession_Transition)
	t.Run("Transition_Terminal", suite.TestSession_TransitionTerminal)
}

func newSession(owner string) *models.Session {
	return &models.Session{
		UploadID:  uuid.NewString(),
		Key:       "videos/clip.mp4",
		OwnerID:   owner,
		FileName:  "clip.mp4",
		MimeType:  "video/mp4",
		Status:    models.StatusInitiated,
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
}

func (suite *Suite) TestSession_CreateAndGet(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	s := newSession("alice")
	require.NoError(t, r.Sessions.Create(ctx, s))

	got, err := r.Sessions.Get(ctx, s.UploadID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitiated, got.Status)
	assert.Equal(t, s.Key, got.Key)

	_, err = r.Sessions.Get(ctx, s.UploadID, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *Suite) TestSession_Transition(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	s := newSession("alice")
	require.NoError(t, r.Sessions.Create(ctx, s))

	s.UpdatedAt = BaseTime.Add(time.Minute)
	require.NoError(t, r.Sessions.Transition(ctx, s,
		[]models.Status{models.StatusInitiated, models.StatusPartsUploading}, models.StatusPartsUploading))
	assert.Equal(t, models.StatusPartsUploading, s.Status)

	done := BaseTime.Add(2 * time.Minute)
	s.CompletedAt = &done
	s.Location = Ptr("https://bucket/videos/clip.mp4")
	require.NoError(t, r.Sessions.Transition(ctx, s,
		[]models.Status{models.StatusInitiated, models.StatusPartsUploading}, models.StatusCompleted))

	got, err := r.Sessions.Get(ctx, s.UploadID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Location)
	require.NotNil(t, got.CompletedAt)
}

func (suite *Suite) TestSession_TransitionTerminal(t *testing.T) {
	r := suite.NewRepos(t)
	ctx := context.Background()

	s := newSession("alice")
	require.NoError(t, r.Sessions.Create(ctx, s))
	require.NoError(t, r.Sessions.Transition(ctx, s, []models.Status{models.StatusInitiated}, models.StatusAborted))

	err := r.Sessions.Transition(ctx, s,
		[]models.Status{models.StatusInitiated, models.StatusPartsUploading}, models.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrUploadTerminal)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
