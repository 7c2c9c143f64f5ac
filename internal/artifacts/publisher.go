package artifacts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// ManifestName is the object written next to the charts of each run
const ManifestName = "manifest.json"

// ObjectStore is the subset of R2Client used for publishing and retention
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// Manifest describes the files published for one run
type Manifest struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Files     []FileMetadata `json:"files"`
}

// FileMetadata contains metadata about a single published file
type FileMetadata struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// Publisher uploads the chart directory of a run under <prefix>/<run-id>/.
// With keepRuns > 0 only the newest keepRuns runs stay in the bucket.
type Publisher struct {
	store    ObjectStore
	prefix   string
	keepRuns int
	log      zerolog.Logger
	now      func() time.Time
}

// NewPublisher creates a publisher writing below prefix
func NewPublisher(store ObjectStore, prefix string, keepRuns int, log zerolog.Logger) *Publisher {
	if prefix == "" {
		prefix = "runs"
	}
	return &Publisher{
		store:    store,
		prefix:   prefix,
		keepRuns: keepRuns,
		log:      log.With().Str("service", "artifacts").Logger(),
		now:      time.Now,
	}
}

// PublishRun uploads every regular file in dir followed by a manifest and
// returns the manifest
func (p *Publisher) PublishRun(ctx context.Context, runID, dir string) (*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	startTime := p.now()
	manifest := &Manifest{RunID: runID, Timestamp: startTime.UTC()}

	for _, name := range names {
		meta, err := p.uploadFile(ctx, runID, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		manifest.Files = append(manifest.Files, meta)
	}

	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	key := p.key(runID, ManifestName)
	if err := p.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload manifest: %w", err)
	}

	p.log.Info().
		Str("run_id", runID).
		Int("files", len(manifest.Files)).
		Dur("duration_ms", p.now().Sub(startTime)).
		Msg("Charts published")

	if p.keepRuns > 0 {
		if _, err := p.RotateRuns(ctx, p.keepRuns, runID); err != nil {
			p.log.Warn().Err(err).Msg("Run rotation failed")
		}
	}

	return manifest, nil
}

// PublishedRun is one run found in the bucket
type PublishedRun struct {
	ID           string
	LastModified time.Time
	Keys         []string
}

// ListRuns groups the objects below the prefix by run, newest first
func (p *Publisher) ListRuns(ctx context.Context) ([]PublishedRun, error) {
	objects, err := p.store.List(ctx, p.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list published runs: %w", err)
	}

	byID := make(map[string]*PublishedRun)
	for _, obj := range objects {
		key := aws.ToString(obj.Key)
		rel := strings.TrimPrefix(key, p.prefix+"/")
		id, _, found := strings.Cut(rel, "/")
		if !found || id == "" {
			continue
		}

		run, ok := byID[id]
		if !ok {
			run = &PublishedRun{ID: id}
			byID[id] = run
		}
		run.Keys = append(run.Keys, key)
		if modified := aws.ToTime(obj.LastModified); modified.After(run.LastModified) {
			run.LastModified = modified
		}
	}

	runs := make([]PublishedRun, 0, len(byID))
	for _, run := range byID {
		sort.Strings(run.Keys)
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].LastModified.Equal(runs[j].LastModified) {
			return runs[i].LastModified.After(runs[j].LastModified)
		}
		return runs[i].ID > runs[j].ID
	})

	return runs, nil
}

// RotateRuns deletes every run beyond the newest keep. The current run is
// always kept and counts towards keep. Returns the number of runs deleted.
func (p *Publisher) RotateRuns(ctx context.Context, keep int, current string) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	runs, err := p.ListRuns(ctx)
	if err != nil {
		return 0, err
	}
	if len(runs) <= keep {
		p.log.Debug().Int("count", len(runs)).Msg("Too few runs to rotate")
		return 0, nil
	}

	kept := 0
	for _, run := range runs {
		if run.ID == current {
			kept++
		}
	}

	deleted := 0
	for _, run := range runs {
		if run.ID == current {
			continue
		}
		if kept < keep {
			kept++
			continue
		}

		failed := false
		for _, key := range run.Keys {
			if err := p.store.Delete(ctx, key); err != nil {
				p.log.Error().
					Err(err).
					Str("key", key).
					Msg("Failed to delete published object")
				failed = true
			}
		}
		if failed {
			continue
		}

		p.log.Info().
			Str("run_id", run.ID).
			Time("last_modified", run.LastModified).
			Msg("Deleted old run")
		deleted++
	}

	p.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(runs)-deleted).
		Msg("Run rotation completed")

	return deleted, nil
}

func (p *Publisher) uploadFile(ctx context.Context, runID, filePath string) (FileMetadata, error) {
	checksum, size, err := calculateChecksum(filePath)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to checksum %s: %w", filePath, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	name := filepath.Base(filePath)
	key := p.key(runID, name)
	if err := p.store.Upload(ctx, key, file, size, mime.TypeByExtension(filepath.Ext(name))); err != nil {
		return FileMetadata{}, err
	}

	return FileMetadata{Key: key, SizeBytes: size, Checksum: checksum}, nil
}

func (p *Publisher) key(runID, name string) string {
	return path.Join(p.prefix, runID, name)
}

// calculateChecksum calculates SHA256 checksum and size of a file
func calculateChecksum(filePath string) (string, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hash := sha256.New()
	n, err := io.Copy(hash, file)
	if err != nil {
		return "", 0, err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), n, nil
}
