// Package backup uploads encrypted snapshots of the ledger database to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/store"
)

var (
	ErrDisabled   = errors.New("backups are not configured")
	ErrInProgress = errors.New("a backup is already running")
)

// s3Client is the subset of *s3.Client the manager needs.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Config struct {
	S3            S3Config
	Prefix        string
	Passphrase    string
	RetentionDays int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

type Manager struct {
	mu       sync.RWMutex
	running  sync.Mutex
	cfg      Config
	status   Status
	callback StatusCallback

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		backups:  store.NewBackupStore(db),
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// Start runs a backup and retention cleanup every interval until Stop.
// It does nothing when backups are disabled.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	if m.client == nil || interval <= 0 {
		return
	}
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Run(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
					continue
				}
				if _, err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the scheduled loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Run snapshots the database, encrypts it and uploads it. Only one run may
// be in flight at a time.
func (m *Manager) Run(ctx context.Context) (*model.Backup, error) {
	if m.client == nil {
		return nil, ErrDisabled
	}
	if !m.running.TryLock() {
		return nil, ErrInProgress
	}
	defer m.running.Unlock()

	m.setStatus(Status{State: StateRunning})

	now := m.now().UTC()
	filename := fmt.Sprintf("choreledger-%s.db.enc", now.Format("2006-01-02T150405Z"))
	key := path.Join(m.cfg.Prefix, now.Format("2006/01"), uuid.NewString()+".db.enc")

	record, err := m.backups.Create(ctx, filename, key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	log := m.logger.With("backup_id", record.ID, "key", key)

	fail := func(step string, err error) (*model.Backup, error) {
		err = fmt.Errorf("%s: %w", step, err)
		if merr := m.backups.MarkFailed(ctx, record.ID, err.Error()); merr != nil {
			log.Error("failed to mark backup failed", "error", merr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		log.Error("backup failed", "error", err)
		return nil, err
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return fail("snapshot", err)
	}
	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return fail("encrypt", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail("upload", err)
	}

	done := m.now().UTC()
	if err := m.backups.MarkCompleted(ctx, record.ID, int64(len(sealed)), done); err != nil {
		return fail("record completion", err)
	}
	m.setStatus(Status{State: StateIdle, LastBackup: &done})
	log.Info("backup uploaded", "size_bytes", len(sealed))

	return m.backups.GetByID(ctx, record.ID)
}

// snapshot writes a consistent copy of the live database with VACUUM INTO
// and returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "choreledger-backup-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, file); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}
	return os.ReadFile(file)
}

func (m *Manager) List(ctx context.Context, limit int) ([]model.Backup, error) {
	if limit <= 0 {
		limit = 20
	}
	out, err := m.backups.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if out == nil {
		out = []model.Backup{}
	}
	return out, nil
}

// Restore downloads backup id, decrypts it, checks its integrity and writes
// it to dst. dst must not exist; swapping it in for the live database is
// left to the operator with the server stopped.
func (m *Manager) Restore(ctx context.Context, id int64, passphrase, dst string) error {
	if m.client == nil {
		return ErrDisabled
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("restore target %s already exists", dst)
	}

	record, err := m.backups.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return fmt.Errorf("backup %d: %w", id, model.ErrNotFound)
	}

	obj, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	defer obj.Body.Close()
	sealed, err := io.ReadAll(obj.Body)
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}

	plain, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}

	tmp := dst + ".restoring"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := checkIntegrity(ctx, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("move restored db: %w", err)
	}
	m.logger.Info("backup restored", "backup_id", id, "path", dst)
	return nil
}

func checkIntegrity(ctx context.Context, file string) error {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Cleanup deletes backups older than the retention period, locally and in
// the bucket, and returns how many were removed. Object deletion failures
// are logged only.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.client == nil || m.cfg.RetentionDays <= 0 {
		return 0, nil
	}

	before := m.now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.backups.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("failed to delete backup object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys), "before", before)
	}
	return len(keys), nil
}
