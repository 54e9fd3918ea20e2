// Package snapshot stores exports of the address collection in a
// gocloud.dev/blob bucket and restores them through the import path.
package snapshot

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"addrstore/config"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/service"
	"addrstore/internal/util"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

const (
	keyPrefix   = "addresses-"
	keySuffix   = ".json"
	timeLayout  = "20060102T150405.000000000Z"
	contentType = "application/json"
	checksumKey = "sha256"
)

// Params defines the dependencies of the snapshot store
type Params struct {
	fx.In
	fx.Lifecycle

	Codec  service.AddressCodec
	Config *config.Config
	Logger *slog.Logger
	Clock  clock.Clock `optional:"true"`
}

// Store implements service.AddressSnapshot.
// The bucket is opened on first use, so commands that never touch snapshots
// never create the backup directory.
type Store struct {
	codec     service.AddressCodec
	clock     clock.Clock
	logger    *slog.Logger
	bucketURL string
	localDir  string
	prefix    string

	mu     sync.Mutex
	bucket *blob.Bucket
}

var _ service.AddressSnapshot = (*Store)(nil)

// New creates the snapshot store and closes its bucket when the app stops.
func New(params Params) service.AddressSnapshot {
	store := NewStore(params.Codec, params.Config, params.Logger, params.Clock)

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return store.Close()
		},
	})

	return store
}

// NewStore creates a snapshot store without lifecycle management.
func NewStore(codec service.AddressCodec, cfg *config.Config, logger *slog.Logger, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		codec:     codec,
		clock:     clk,
		logger:    logger,
		bucketURL: cfg.Snapshot.BucketURL,
		localDir:  cfg.SnapshotDir(),
		prefix:    cfg.Snapshot.Prefix,
	}
}

// Backup writes a full export of the collection.
func (s *Store) Backup(ctx context.Context, key string) (string, error) {
	if key == "" {
		key = keyPrefix + s.clock.Now().UTC().Format(timeLayout) + keySuffix
	}

	bucket, err := s.open(ctx)
	if err != nil {
		return "", err
	}

	payload, err := s.codec.Export(ctx)
	if err != nil {
		return "", err
	}

	opts := &blob.WriterOptions{
		ContentType: contentType,
		Metadata:    map[string]string{checksumKey: util.ChecksumBytes(payload)},
	}
	if err := bucket.WriteAll(ctx, s.prefix+key, payload, opts); err != nil {
		return "", domainerrors.NewStorageError(errors.Wrapf(err, "write snapshot %q", key), "backup")
	}

	s.logger.InfoContext(ctx, "Snapshot written",
		slog.String("key", key),
		slog.String("size", util.FormatBytes(int64(len(payload)))),
	)

	return key, nil
}

// Restore imports a snapshot into the collection.
func (s *Store) Restore(ctx context.Context, key string) (*service.ImportReport, error) {
	if key == "" {
		latest, err := s.Latest(ctx)
		if err != nil {
			return nil, err
		}
		key = latest
	}

	bucket, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := bucket.ReadAll(ctx, s.prefix+key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, domainerrors.ErrSnapshotNotFound.WithDetails(key)
	}
	if err != nil {
		return nil, domainerrors.NewStorageError(errors.Wrapf(err, "read snapshot %q", key), "restore")
	}
	if err := s.verify(ctx, bucket, key, payload); err != nil {
		return nil, err
	}

	report, err := s.codec.Import(ctx, payload)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Snapshot restored",
		slog.String("key", key),
		slog.Int("imported", report.Imported),
	)

	return report, nil
}

// verify compares payload with the checksum recorded at backup time.
// Objects written without one are accepted as they are.
func (s *Store) verify(ctx context.Context, bucket *blob.Bucket, key string, payload []byte) error {
	attrs, err := bucket.Attributes(ctx, s.prefix+key)
	if err != nil {
		return domainerrors.NewStorageError(errors.Wrapf(err, "read snapshot %q attributes", key), "restore")
	}

	want := attrs.Metadata[checksumKey]
	if want == "" || want == util.ChecksumBytes(payload) {
		return nil
	}

	return domainerrors.ErrInvalidFormat.WithDetails(fmt.Sprintf("snapshot %q does not match its checksum", key))
}

// Latest returns the key of the newest snapshot.
func (s *Store) Latest(ctx context.Context) (string, error) {
	snapshots, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(snapshots) == 0 {
		return "", domainerrors.ErrSnapshotNotFound.WithDetails(fmt.Sprintf("no snapshot under %q", s.prefix))
	}

	return snapshots[len(snapshots)-1].Key, nil
}

// List returns the snapshots ordered by modification time, then key.
func (s *Store) List(ctx context.Context) ([]service.SnapshotInfo, error) {
	bucket, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := []service.SnapshotInfo{}
	iter := bucket.List(&blob.ListOptions{Prefix: s.prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domainerrors.NewStorageError(errors.Wrap(err, "list snapshots"), "list")
		}
		if obj.IsDir {
			continue
		}

		snapshots = append(snapshots, service.SnapshotInfo{
			Key:     strings.TrimPrefix(obj.Key, s.prefix),
			Size:    obj.Size,
			ModTime: obj.ModTime,
		})
	}

	slices.SortFunc(snapshots, func(a, b service.SnapshotInfo) int {
		if c := a.ModTime.Compare(b.ModTime); c != 0 {
			return c
		}

		return cmp.Compare(a.Key, b.Key)
	})

	return snapshots, nil
}

// Close releases the bucket if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucket == nil {
		return nil
	}

	err := s.bucket.Close()
	s.bucket = nil

	return errors.Wrap(err, "close snapshot bucket")
}

func (s *Store) open(ctx context.Context) (*blob.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucket != nil {
		return s.bucket, nil
	}

	var (
		bucket *blob.Bucket
		err    error
	)
	if s.bucketURL != "" {
		bucket, err = blob.OpenBucket(ctx, s.bucketURL)
	} else {
		bucket, err = fileblob.OpenBucket(s.localDir, &fileblob.Options{CreateDir: true})
	}
	if err != nil {
		return nil, domainerrors.NewStorageError(errors.Wrap(err, "open snapshot bucket"), "open")
	}

	s.bucket = bucket

	return bucket, nil
}
