package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"coiportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionArchive_PutGet(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStorage(dir)
	require.NoError(t, err)
	archive := NewSubmissionArchive(local)
	ctx := context.Background()

	sub := model.Submission{Answers: []model.SubmittedAnswer{
		{OptionID: 10, IsAnswered: model.Bool(true), AdditionalAnswers: []model.SubmittedGroup{
			{Answers: []model.AdditionalAnswer{{AdditionalAnswerID: 100, Answer: "Acme"}}},
		}},
		{OptionID: 30, Answer: model.Null()},
	}}

	digest, err := archive.Put(ctx, "01HZ", sub)
	require.NoError(t, err)
	assert.Len(t, digest, 64)
	assert.FileExists(t, filepath.Join(dir, "submissions", "01HZ", digest+".json"))

	again, err := archive.Put(ctx, "01HZ", sub)
	require.NoError(t, err)
	assert.Equal(t, digest, again)

	got, err := archive.Get(ctx, "01HZ", digest)
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestSubmissionArchive_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStorage(dir)
	require.NoError(t, err)
	archive := NewSubmissionArchive(local)
	ctx := context.Background()

	digest, err := archive.Put(ctx, "01HZ", model.Submission{Answers: []model.SubmittedAnswer{}})
	require.NoError(t, err)

	path := filepath.Join(dir, ObjectName("01HZ", digest))
	require.NoError(t, os.WriteFile(path, []byte(`{"answers":[{"optionId":1}]}`), 0644))

	_, err = archive.Get(ctx, "01HZ", digest)
	assert.ErrorContains(t, err, "corrupt")
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	_, err = local.Get(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}
