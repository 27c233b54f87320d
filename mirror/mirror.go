package mirror

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	rutils "github.com/viam-labs/roboclip/utils"
)

// snapshotFileName records what the bucket looked like at mirror time.
const snapshotFileName = "bucket_metadata.json"

// retryBackoff is scaled by the attempt number between download retries.
const retryBackoff = 500 * time.Millisecond

// Result summarizes one mirror pass.
type Result struct {
	Listed     int
	Downloaded int
	Skipped    int
	Failed     int
}

// A Mirrorer copies the remote bucket into the local data directory. Passes
// are idempotent; files already present locally are never fetched again.
type Mirrorer struct {
	cfg    *Config
	store  Store
	clock  clock.Clock
	logger golog.Logger
}

// New returns a Mirrorer backed by the Supabase storage endpoints named in
// the config.
func New(cfg *Config, logger golog.Logger) *Mirrorer {
	return NewWithStore(cfg, NewSupabaseStore(cfg), clock.New(), logger)
}

// NewWithStore is New with the remote store and clock injected.
func NewWithStore(cfg *Config, store Store, clk clock.Clock, logger golog.Logger) *Mirrorer {
	return &Mirrorer{cfg: cfg, store: store, clock: clk, logger: logger}
}

// Mirror lists the bucket, snapshots the listing, and downloads whatever is
// missing locally. Individual download failures are retried, then counted
// and logged without aborting the pass; only listing failures and context
// cancellation do that.
func (m *Mirrorer) Mirror(ctx context.Context) (*Result, error) {
	objects, err := m.store.List(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "cannot list remote bucket")
	}
	m.logger.Infow("listed bucket", "bucket", m.cfg.Bucket, "objects", len(objects))

	if err := os.MkdirAll(m.cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "cannot create data directory")
	}
	if err := m.writeSnapshot(objects); err != nil {
		return nil, err
	}

	result := &Result{Listed: len(objects)}
	var resultMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(m.cfg.Workers)
	for _, obj := range objects {
		obj := obj
		group.Go(func() error {
			status, err := m.fetchOne(gctx, obj)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			if err != nil {
				m.logger.Warnw("giving up on object", "object", obj.Name, "error", err)
			}
			resultMu.Lock()
			switch status {
			case fetchDownloaded:
				result.Downloaded++
			case fetchSkipped:
				result.Skipped++
			case fetchFailed:
				result.Failed++
			}
			resultMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	m.logger.Infow("mirror pass complete",
		"bucket", m.cfg.Bucket,
		"downloaded", result.Downloaded,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

type fetchStatus int

const (
	fetchDownloaded fetchStatus = iota
	fetchSkipped
	fetchFailed
)

func (m *Mirrorer) fetchOne(ctx context.Context, obj Object) (fetchStatus, error) {
	outPath, err := rutils.SafeJoinDir(m.cfg.DataDir, obj.Name)
	if err != nil {
		return fetchFailed, err
	}
	if _, err := os.Stat(outPath); err == nil {
		m.logger.Debugw("already mirrored", "object", obj.Name)
		return fetchSkipped, nil
	}

	for attempt := 0; ; attempt++ {
		err := m.download(ctx, obj.Name, outPath)
		if err == nil {
			return fetchDownloaded, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fetchFailed, err
		}
		if attempt >= m.cfg.Retries {
			return fetchFailed, err
		}
		backoff := time.Duration(attempt+1) * retryBackoff
		m.logger.Debugw("retrying download",
			"object", obj.Name, "attempt", attempt+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fetchFailed, ctx.Err()
		case <-m.clock.After(backoff):
		}
	}
}

// download streams the object to a temp file beside its destination and
// renames it into place, so a torn download never looks like a mirrored
// file.
func (m *Mirrorer) download(ctx context.Context, name, outPath string) error {
	body, err := m.store.Fetch(ctx, name)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(body.Close)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrap(err, "cannot create mirror subdirectory")
	}
	tmpPath := outPath + ".part"
	//nolint:gosec
	out, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "cannot create download file")
	}
	if _, err := io.Copy(out, body); err != nil {
		utils.UncheckedError(out.Close())
		rutils.RemoveFileNoError(tmpPath)
		return errors.Wrapf(err, "downloading %s", name)
	}
	if err := out.Close(); err != nil {
		rutils.RemoveFileNoError(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		rutils.RemoveFileNoError(tmpPath)
		return err
	}
	m.logger.Debugw("downloaded", "object", name)
	return nil
}

type snapshot struct {
	SnapshotID string   `json:"snapshot_id"`
	Bucket     string   `json:"bucket"`
	MirroredAt string   `json:"mirrored_at"`
	FileCount  int      `json:"file_count"`
	Files      []Object `json:"files"`
}

func (m *Mirrorer) writeSnapshot(objects []Object) error {
	snap := snapshot{
		SnapshotID: uuid.New().String(),
		Bucket:     m.cfg.Bucket,
		MirroredAt: m.clock.Now().UTC().Format(time.RFC3339),
		FileCount:  len(objects),
		Files:      objects,
	}
	blob, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(m.cfg.DataDir, snapshotFileName)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return errors.Wrap(err, "cannot write bucket snapshot")
	}
	return nil
}
