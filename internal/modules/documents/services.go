package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/session"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/storage"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoFiles          = validation.Invalid("at least one file is required")
	ErrUploadFailed     = errors.New("no documents could be stored")
)

// allowedTypes maps accepted extensions to the content type stored when the
// client does not send one.
var allowedTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Download is either a redirect URL or a stream, never both.
type Download struct {
	Document *Document
	URL      string
	Body     io.ReadCloser
}

type DocumentService struct {
	db     *gorm.DB
	store  storage.BlobStore
	urlTTL time.Duration
	now    func() time.Time
}

func NewDocumentService(db *gorm.DB, store storage.BlobStore, urlTTL time.Duration) *DocumentService {
	if urlTTL <= 0 {
		urlTTL = 5 * time.Minute
	}
	return &DocumentService{db: db, store: store, urlTTL: urlTTL, now: time.Now}
}

// Upload stores every file under username and records its metadata. All
// extensions are checked before anything is written.
func (s *DocumentService) Upload(ctx context.Context, userID uuid.UUID, username string, files []UploadFile, description string) (*UploadResponse, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if _, ok := allowedTypes[extension(f.Filename)]; !ok {
			return nil, validation.Invalid(fmt.Sprintf("%s: file type not allowed (pdf, png, jpg, jpeg)", filepath.Base(f.Filename)))
		}
	}

	resp := &UploadResponse{Uploaded: []Document{}, Failed: []UploadFailure{}}
	description = strings.TrimSpace(description)
	for _, f := range files {
		doc, err := s.storeOne(ctx, userID, username, f, description)
		if err != nil {
			slog.Error("document upload failed", "user_id", userID.String(), "action", "document_upload",
				"filename", f.Filename, "error", err.Error())
			resp.Failed = append(resp.Failed, UploadFailure{Filename: f.Filename, Error: "failed to store file"})
			continue
		}
		resp.Uploaded = append(resp.Uploaded, *doc)
	}

	if len(resp.Uploaded) == 0 {
		return resp, ErrUploadFailed
	}
	return resp, nil
}

func (s *DocumentService) storeOne(ctx context.Context, userID uuid.UUID, username string, f UploadFile, description string) (*Document, error) {
	now := s.now().UTC()
	key, err := s.uniqueKey(ctx, username, now, f.Filename)
	if err != nil {
		return nil, err
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = allowedTypes[extension(f.Filename)]
	}

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer body.Close()

	if err := s.store.Put(ctx, key, body, f.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}

	doc := Document{
		ID:               uuid.New(),
		UserID:           userID,
		OriginalFilename: filepath.Base(f.Filename),
		StorageKey:       key,
		ContentType:      contentType,
		SizeBytes:        f.Size,
		Description:      description,
		UploadedAt:       now,
	}
	if err := s.db.Create(&doc).Error; err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			slog.Error("orphaned blob after failed insert", "key", key, "error", delErr.Error())
		}
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	return &doc, nil
}

// uniqueKey builds "<username>/<unix>-<name>", adding "-N" before the
// extension while the key is taken.
func (s *DocumentService) uniqueKey(ctx context.Context, username string, now time.Time, filename string) (string, error) {
	name := SanitizeFilename(filename)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	prefix := fmt.Sprintf("%s/%d-", SanitizeFilename(username), now.Unix())

	key := prefix + name
	for i := 1; ; i++ {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			var n int64
			if err := s.db.Model(&Document{}).Where("storage_key = ?", key).Count(&n).Error; err != nil {
				return "", err
			}
			if n == 0 {
				return key, nil
			}
		}
		key = fmt.Sprintf("%s%s-%d%s", prefix, stem, i, ext)
	}
}

// List returns the user's documents, newest upload first.
func (s *DocumentService) List(userID uuid.UUID) ([]Document, error) {
	docs := []Document{}
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("uploaded_at DESC").
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (s *DocumentService) Get(userID, id uuid.UUID) (*Document, error) {
	var doc Document
	if err := s.db.Scopes(session.ForOwner(userID)).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Download presigns a URL when the store supports it and otherwise opens the
// blob for streaming.
func (s *DocumentService) Download(ctx context.Context, userID, id uuid.UUID) (*Download, error) {
	doc, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	url, err := s.store.PresignGet(ctx, doc.StorageKey, s.urlTTL)
	if err == nil {
		return &Download{Document: doc, URL: url}, nil
	}
	if !errors.Is(err, storage.ErrPresignUnsupported) {
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}

	body, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return &Download{Document: doc, Body: body}, nil
}

// Delete removes the blob and then the row. A missing blob does not block
// removing the row.
func (s *DocumentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	doc, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return s.db.Delete(doc).Error
}

func (s *DocumentService) Count(userID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.Model(&Document{}).Scopes(session.ForOwner(userID)).Count(&n).Error
	return n, err
}

func (s *DocumentService) RecentlyAdded(userID uuid.UUID, limit int) ([]Document, error) {
	var docs []Document
	err := s.db.Scopes(session.ForOwner(userID)).
		Order("uploaded_at DESC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// purge deletes the user's rows inside tx and returns a func that removes
// their blobs once the caller commits.
func (s *DocumentService) purge(tx *gorm.DB, userID uuid.UUID) (func(), error) {
	var keys []string
	if err := tx.Model(&Document{}).Where("user_id = ?", userID).Pluck("storage_key", &keys).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Delete(&Document{}).Error; err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for _, key := range keys {
			if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				slog.Error("failed to delete blob of removed account", "user_id", userID.String(),
					"action", "purge_documents", "key", key, "error", err.Error())
			}
		}
	}, nil
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.TrimLeft(out, ".")
	if out == "" {
		return "file"
	}
	return out
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
