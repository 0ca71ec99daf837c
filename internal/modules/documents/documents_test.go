package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/storage"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is an in-memory BlobStore. presign switches on URL downloads,
// failPut and failDelete make Put and Delete return an error.
type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	presign    bool
	failPut    bool
	failDelete bool
	putCalls   int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.failPut {
		return errors.New("disk full")
	}
	m.objects[key] = b
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errors.New("backend unavailable")
	}
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if !m.presign {
		return "", storage.ErrPresignUnsupported
	}
	return "https://blobs.example.com/" + key + "?ttl=" + ttl.String(), nil
}

func file(name, body string) UploadFile {
	return UploadFile{
		Filename: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"labs.pdf":            "labs.pdf",
		"blood test 2024.PNG": "blood_test_2024.PNG",
		"../../etc/passwd":    "passwd",
		`C:\scans\x-ray.jpg`:  "x-ray.jpg",
		"..hidden..jpg":       "hidden.jpg",
		"":                    "file",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestUploadRejectsWholeBatchOnBadExtension(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	svc := NewDocumentService(db, store, 0)

	_, err := svc.Upload(context.Background(), user.ID, "ada", []UploadFile{file("ok.pdf", "a"), file("virus.exe", "b")}, "")
	assert.True(t, validation.IsInvalid(err))
	assert.Zero(t, store.putCalls)

	_, err = svc.Upload(context.Background(), user.ID, "ada", nil, "")
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestUploadKeysAndCollisions(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	svc := NewDocumentService(db, store, 0)
	svc.now = func() time.Time { return fixedNow }

	resp, err := svc.Upload(context.Background(), user.ID, "ada",
		[]UploadFile{file("labs.pdf", "one"), file("labs.pdf", "two"), file("scan.JPG", "img")}, " yearly ")
	require.NoError(t, err)
	require.Len(t, resp.Uploaded, 3)
	assert.Empty(t, resp.Failed)

	assert.Equal(t, "ada/1714557600-labs.pdf", resp.Uploaded[0].StorageKey)
	assert.Equal(t, "ada/1714557600-labs-1.pdf", resp.Uploaded[1].StorageKey)
	assert.Equal(t, "image/jpeg", resp.Uploaded[2].ContentType)
	assert.Equal(t, "application/pdf", resp.Uploaded[0].ContentType)
	assert.Equal(t, "yearly", resp.Uploaded[0].Description)
	assert.Equal(t, int64(3), resp.Uploaded[0].SizeBytes)
	assert.Equal(t, []byte("two"), store.objects["ada/1714557600-labs-1.pdf"])
}

func TestUploadRemovesBlobWhenInsertFails(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	svc := NewDocumentService(db, store, 0)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_documents", func(tx *gorm.DB) {
		if tx.Statement.Table == "documents" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	resp, err := svc.Upload(context.Background(), user.ID, "ada", []UploadFile{file("labs.pdf", "x")}, "")
	assert.ErrorIs(t, err, ErrUploadFailed)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, "labs.pdf", resp.Failed[0].Filename)
	assert.Equal(t, 1, store.putCalls)
	assert.Empty(t, store.objects)
}

func TestDownloadPresignedOrStreamed(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	other := testutil.NewUser(t, db, "bob")
	store := newMemStore()
	svc := NewDocumentService(db, store, 5*time.Minute)
	ctx := context.Background()

	resp, err := svc.Upload(ctx, user.ID, "ada", []UploadFile{file("labs.pdf", "%PDF")}, "")
	require.NoError(t, err)
	id := resp.Uploaded[0].ID

	dl, err := svc.Download(ctx, user.ID, id)
	require.NoError(t, err)
	assert.Empty(t, dl.URL)
	body, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "%PDF", string(body))

	store.presign = true
	dl, err = svc.Download(ctx, user.ID, id)
	require.NoError(t, err)
	assert.Contains(t, dl.URL, "ttl=5m0s")
	assert.Nil(t, dl.Body)

	_, err = svc.Download(ctx, other.ID, id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteOrder(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	svc := NewDocumentService(db, store, 0)
	ctx := context.Background()

	resp, err := svc.Upload(ctx, user.ID, "ada", []UploadFile{file("a.pdf", "a"), file("b.pdf", "b")}, "")
	require.NoError(t, err)
	a, b := resp.Uploaded[0], resp.Uploaded[1]

	store.failDelete = true
	assert.Error(t, svc.Delete(ctx, user.ID, a.ID))
	_, err = svc.Get(user.ID, a.ID)
	assert.NoError(t, err, "row must survive a failed blob delete")

	store.failDelete = false
	delete(store.objects, b.StorageKey)
	require.NoError(t, svc.Delete(ctx, user.ID, b.ID))
	_, err = svc.Get(user.ID, b.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPurgeDeletesBlobsAfterCommit(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	user := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	m := New(db, store, 0)

	_, err := m.Service().Upload(context.Background(), user.ID, "ada", []UploadFile{file("a.pdf", "a")}, "")
	require.NoError(t, err)

	after, err := m.PurgeUserData(db, user.ID)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Len(t, store.objects, 1)

	after()
	assert.Empty(t, store.objects)
	n, _ := m.Service().Count(user.ID)
	assert.Zero(t, n)
}

func multipartBody(t *testing.T, description string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if description != "" {
		require.NoError(t, w.WriteField("description", description))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandlersWithLocalStore(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	ada := testutil.NewUser(t, db, "ada")
	bob := testutil.NewUser(t, db, "bob")
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	app := fiber.New()
	api := app.Group("/api", middleware.JWTProtected(&config.Config{JWTSecret: testutil.JWTSecret}))
	New(db, store, 0).RegisterRoutes(api)
	adaTok, bobTok := testutil.Token(t, ada), testutil.Token(t, bob)

	body, ct := multipartBody(t, "", map[string]string{"notes.txt": "x"})
	req := httptest.NewRequest("POST", "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+adaTok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, ct = multipartBody(t, "bloodwork", map[string]string{"labs.pdf": "%PDF-1.4"})
	req = httptest.NewRequest("POST", "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+adaTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	require.Len(t, up.Uploaded, 1)
	id := up.Uploaded[0].ID.String()
	assert.Equal(t, "bloodwork", up.Uploaded[0].Description)

	req = httptest.NewRequest("GET", "/api/documents/"+id+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+adaTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="labs.pdf"`, resp.Header.Get("Content-Disposition"))
	got, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "%PDF-1.4", string(got))

	req = httptest.NewRequest("GET", "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer "+bobTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	var list DocumentListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Zero(t, list.Total)

	req = httptest.NewRequest("DELETE", "/api/documents/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+bobTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/api/documents/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+adaTok)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDownloadRedirectsWhenPresigned(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	ada := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	store.presign = true
	m := New(db, store, time.Minute)

	resp, err := m.Service().Upload(context.Background(), ada.ID, "ada", []UploadFile{file("x.png", "png")}, "")
	require.NoError(t, err)

	app := fiber.New()
	api := app.Group("/api", middleware.JWTProtected(&config.Config{JWTSecret: testutil.JWTSecret}))
	m.RegisterRoutes(api)

	req := httptest.NewRequest("GET", "/api/documents/"+resp.Uploaded[0].ID.String()+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, ada))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTemporaryRedirect, res.StatusCode)
	assert.True(t, strings.HasPrefix(res.Header.Get("Location"), "https://blobs.example.com/ada/"))
}

func TestUploadReportsFailuresWhenNothingStored(t *testing.T) {
	db := testutil.NewDB(t, &Document{})
	ada := testutil.NewUser(t, db, "ada")
	store := newMemStore()
	store.failPut = true

	app := fiber.New()
	api := app.Group("/api", middleware.JWTProtected(&config.Config{JWTSecret: testutil.JWTSecret}))
	New(db, store, 0).RegisterRoutes(api)

	body, ct := multipartBody(t, "", map[string]string{"labs.pdf": "%PDF-1.4"})
	req := httptest.NewRequest("POST", "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, ada))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.Empty(t, up.Uploaded)
	require.Len(t, up.Failed, 1)
	assert.Equal(t, "labs.pdf", up.Failed[0].Filename)
	assert.Equal(t, "failed to store file", up.Failed[0].Error)

	var n int64
	require.NoError(t, db.Model(&Document{}).Count(&n).Error)
	assert.Zero(t, n)
}
