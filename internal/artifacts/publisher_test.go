package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectStore is a mock implementation of ObjectStore
type MockObjectStore struct {
	mock.Mock
	bodies map[string][]byte
}

func (m *MockObjectStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if m.bodies == nil {
		m.bodies = make(map[string][]byte)
	}
	m.bodies[key] = data
	args := m.Called(key, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]types.Object, error) {
	args := m.Called(prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Object), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func object(key string, modified time.Time) types.Object {
	return types.Object{Key: aws.String(key), LastModified: aws.Time(modified)}
}

func writeCharts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payoff_function.png"), []byte("png-bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "estimated_option_price.svg"), []byte("<svg/>"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ignored"), 0755))
	return dir
}

func TestPublisher_PublishRun(t *testing.T) {
	dir := writeCharts(t)
	store := &MockObjectStore{}
	store.On("Upload", "runs/run-1/estimated_option_price.svg", int64(6), "image/svg+xml").Return(nil).Once()
	store.On("Upload", "runs/run-1/payoff_function.png", int64(9), "image/png").Return(nil).Once()
	store.On("Upload", "runs/run-1/manifest.json", mock.AnythingOfType("int64"), "application/json").Return(nil).Once()

	p := NewPublisher(store, "", 0, zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	manifest, err := p.PublishRun(context.Background(), "run-1", dir)
	require.NoError(t, err)
	store.AssertExpectations(t)

	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "runs/run-1/estimated_option_price.svg", manifest.Files[0].Key)
	assert.Equal(t, "runs/run-1/payoff_function.png", manifest.Files[1].Key)
	assert.Equal(t, int64(9), manifest.Files[1].SizeBytes)
	assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, manifest.Files[1].Checksum)
	assert.Equal(t, []byte("png-bytes"), store.bodies["runs/run-1/payoff_function.png"])

	var uploaded Manifest
	require.NoError(t, json.Unmarshal(store.bodies["runs/run-1/manifest.json"], &uploaded))
	assert.Equal(t, *manifest, uploaded)
	assert.Equal(t, fixed, uploaded.Timestamp)
}

func TestPublisher_UploadFailureStops(t *testing.T) {
	dir := writeCharts(t)
	store := &MockObjectStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied")).Once()

	p := NewPublisher(store, "charts", 0, zerolog.Nop())
	_, err := p.PublishRun(context.Background(), "run-2", dir)

	assert.ErrorContains(t, err, "access denied")
	store.AssertNumberOfCalls(t, "Upload", 1)
}

func TestPublisher_MissingDirectory(t *testing.T) {
	p := NewPublisher(&MockObjectStore{}, "", 0, zerolog.Nop())
	_, err := p.PublishRun(context.Background(), "run-3", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func bucketObjects() []types.Object {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []types.Object{
		object("runs/old/manifest.json", base),
		object("runs/old/payoff_function.png", base),
		object("runs/mid/payoff_function.png", base.Add(time.Hour)),
		object("runs/new/manifest.json", base.Add(3*time.Hour)),
		object("runs/new/payoff_function.png", base.Add(2*time.Hour)),
		object("runs/stray.txt", base.Add(4*time.Hour)),
	}
}

func TestPublisher_ListRuns(t *testing.T) {
	store := &MockObjectStore{}
	store.On("List", "runs/").Return(bucketObjects(), nil)

	runs, err := NewPublisher(store, "", 0, zerolog.Nop()).ListRuns(context.Background())
	require.NoError(t, err)

	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), runs[0].LastModified)
	assert.Equal(t, []string{"runs/new/manifest.json", "runs/new/payoff_function.png"}, runs[0].Keys)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
}

func TestPublisher_RotateRuns(t *testing.T) {
	store := &MockObjectStore{}
	store.On("List", "runs/").Return(bucketObjects(), nil)
	store.On("Delete", "runs/mid/payoff_function.png").Return(nil).Once()
	store.On("Delete", "runs/old/manifest.json").Return(nil).Once()
	store.On("Delete", "runs/old/payoff_function.png").Return(nil).Once()

	deleted, err := NewPublisher(store, "", 0, zerolog.Nop()).RotateRuns(context.Background(), 1, "new")
	require.NoError(t, err)

	assert.Equal(t, 2, deleted)
	store.AssertExpectations(t)
}

func TestPublisher_RotateRunsKeepsCurrent(t *testing.T) {
	store := &MockObjectStore{}
	store.On("List", "runs/").Return(bucketObjects(), nil)
	store.On("Delete", "runs/mid/payoff_function.png").Return(nil).Once()

	// "old" is the run just published, so it survives even though it is oldest
	deleted, err := NewPublisher(store, "", 0, zerolog.Nop()).RotateRuns(context.Background(), 2, "old")
	require.NoError(t, err)

	assert.Equal(t, 1, deleted)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Delete", "runs/new/manifest.json")
	store.AssertNotCalled(t, "Delete", "runs/old/manifest.json")
}

func TestPublisher_RotateRunsNothingToDo(t *testing.T) {
	store := &MockObjectStore{}
	p := NewPublisher(store, "", 0, zerolog.Nop())

	deleted, err := p.RotateRuns(context.Background(), 0, "new")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	store.AssertNotCalled(t, "List", mock.Anything)

	store.On("List", "runs/").Return(bucketObjects(), nil)
	deleted, err = p.RotateRuns(context.Background(), 3, "new")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	store.AssertNotCalled(t, "Delete", mock.Anything)
}

func TestPublisher_RotateRunsDeleteFailure(t *testing.T) {
	store := &MockObjectStore{}
	store.On("List", "runs/").Return(bucketObjects(), nil)
	store.On("Delete", "runs/mid/payoff_function.png").Return(errors.New("access denied")).Once()
	store.On("Delete", "runs/old/manifest.json").Return(nil).Once()
	store.On("Delete", "runs/old/payoff_function.png").Return(nil).Once()

	deleted, err := NewPublisher(store, "", 0, zerolog.Nop()).RotateRuns(context.Background(), 1, "new")
	require.NoError(t, err)

	assert.Equal(t, 1, deleted)
	store.AssertExpectations(t)
}

func TestPublisher_PublishRunRotates(t *testing.T) {
	dir := writeCharts(t)
	store := &MockObjectStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("List", "runs/").Return([]types.Object{
		object("runs/run-2/manifest.json", time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)),
		object("runs/run-1/manifest.json", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
		object("runs/run-1/payoff_function.png", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}, nil).Once()
	store.On("Delete", "runs/run-1/manifest.json").Return(nil).Once()
	store.On("Delete", "runs/run-1/payoff_function.png").Return(nil).Once()

	manifest, err := NewPublisher(store, "", 1, zerolog.Nop()).PublishRun(context.Background(), "run-2", dir)
	require.NoError(t, err)

	assert.Equal(t, "run-2", manifest.RunID)
	store.AssertExpectations(t)
}

func TestPublisher_PublishRunRotationFailureIsNotFatal(t *testing.T) {
	dir := writeCharts(t)
	store := &MockObjectStore{}
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("List", "runs/").Return(nil, errors.New("list denied")).Once()

	manifest, err := NewPublisher(store, "", 5, zerolog.Nop()).PublishRun(context.Background(), "run-3", dir)
	require.NoError(t, err)

	assert.Len(t, manifest.Files, 2)
	store.AssertNotCalled(t, "Delete", mock.Anything)
}
