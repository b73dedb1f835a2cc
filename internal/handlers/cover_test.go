package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/libshelf/apiserver/internal/storage"
	"github.com/libshelf/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryObjectStorage keeps objects in a map for handler tests.
type memoryObjectStorage struct {
	objects map[string][]byte
}

func newMemoryObjectStorage() *memoryObjectStorage {
	return &memoryObjectStorage{objects: map[string][]byte{}}
}

func (m *memoryObjectStorage) EnsureBucket(ctx context.Context) error {
	return nil
}

func (m *memoryObjectStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjectStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryObjectStorage) Bucket() string {
	return "test-bucket"
}

func coverRequest(t *testing.T, path, token string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(formFieldCover, "cover.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCoverUploadAndFetch(t *testing.T) {
	backend := newMemoryObjectStorage()
	env := newTestEnvWithCovers(t, storage.NewCoverStore(backend))
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})
	payload := []byte("png-bytes")

	rec := serve(env, coverRequest(t, fmt.Sprintf("/book/%d/cover", book.ID), token, payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp["image"], "covers/"), "key %q", resp["image"])

	stored, err := env.bookRepo.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, resp["image"], stored.Image)

	rec = doJSON(env, http.MethodGet, fmt.Sprintf("/book/%d/cover", book.ID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestCoverUploadBookNotFound(t *testing.T) {
	env := newTestEnvWithCovers(t, storage.NewCoverStore(newMemoryObjectStorage()))
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	rec := serve(env, coverRequest(t, "/book/999/cover", token, []byte("x")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCoverUploadForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnvWithCovers(t, storage.NewCoverStore(newMemoryObjectStorage()))
	_, token := env.seedUser(t, "reader@b.com", "pw", false)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	rec := serve(env, coverRequest(t, fmt.Sprintf("/book/%d/cover", book.ID), token, []byte("x")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCoverMissingFile(t *testing.T) {
	env := newTestEnvWithCovers(t, storage.NewCoverStore(newMemoryObjectStorage()))
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/book/%d/cover", book.ID), &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := serve(env, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoverNotUploaded(t *testing.T) {
	env := newTestEnvWithCovers(t, storage.NewCoverStore(newMemoryObjectStorage()))
	_, token := env.seedUser(t, "reader@b.com", "pw", false)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	rec := doJSON(env, http.MethodGet, fmt.Sprintf("/book/%d/cover", book.ID), token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
