package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"coiportal/internal/model"
)

// Storage defines the interface for object storage backends
type Storage interface {
	Put(ctx context.Context, objectName string, reader io.Reader) error
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// LocalStorage implements Storage using local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local filesystem storage backend
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

func (s *LocalStorage) path(objectName string) (string, error) {
	clean := filepath.Clean("/" + objectName)
	if strings.Contains(objectName, "..") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *LocalStorage) Put(ctx context.Context, objectName string, reader io.Reader) error {
	fullPath, err := s.path(objectName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write then rename so readers never see a partial snapshot
	tmp := fullPath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp, fullPath)
}

func (s *LocalStorage) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	fullPath, err := s.path(objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, objectName string) error {
	fullPath, err := s.path(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CalculateSHA256 calculates SHA256 hash of content
func CalculateSHA256(reader io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// SubmissionArchive stores each submitted payload under its answer ID and
// content digest. Identical resubmissions map to the same object.
type SubmissionArchive struct {
	store Storage
}

func NewSubmissionArchive(store Storage) *SubmissionArchive {
	return &SubmissionArchive{store: store}
}

// ObjectName is the archive key of a snapshot
func ObjectName(answerID, digest string) string {
	return fmt.Sprintf("submissions/%s/%s.json", answerID, digest)
}

// Put stores the snapshot and returns its SHA-256 digest
func (a *SubmissionArchive) Put(ctx context.Context, answerID string, sub model.Submission) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to encode submission: %w", err)
	}
	digest, err := CalculateSHA256(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if err := a.store.Put(ctx, ObjectName(answerID, digest), bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("failed to archive submission: %w", err)
	}
	return digest, nil
}

// Get loads a snapshot and verifies it against its digest
func (a *SubmissionArchive) Get(ctx context.Context, answerID, digest string) (model.Submission, error) {
	var sub model.Submission
	rc, err := a.store.Get(ctx, ObjectName(answerID, digest))
	if err != nil {
		return sub, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return sub, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if sum := sha256.Sum256(body); hex.EncodeToString(sum[:]) != digest {
		return sub, fmt.Errorf("snapshot %s of %s is corrupt", digest, answerID)
	}
	if err := json.Unmarshal(body, &sub); err != nil {
		return sub, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return sub, nil
}
