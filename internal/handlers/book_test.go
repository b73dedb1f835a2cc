package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/libshelf/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookBody = `{"title":"T","author":"X","pages":10,"summary":"S","image":"img.png"}`

func doJSON(env *testEnv, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestBookCreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	rec := doJSON(env, http.MethodPost, "/book", token, bookBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	assert.Equal(t, "T", created.Title)
	assert.Equal(t, 10, created.Pages)

	rec = doJSON(env, http.MethodGet, fmt.Sprintf("/book/%d", created.ID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched types.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created, fetched)
}

func TestBookList(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "reader@b.com", "pw", false)

	env.bookRepo.Create(context.Background(), types.Book{Title: "T1"})
	env.bookRepo.Create(context.Background(), types.Book{Title: "T2"})

	rec := doJSON(env, http.MethodGet, "/book", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BookListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Books, 2)
}

func TestBookCreateMissingFields(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	// Each payload drops one required key.
	for _, body := range []string{
		`{"author":"X","pages":10,"summary":"S","image":"img.png"}`,
		`{"title":"T","pages":10,"summary":"S","image":"img.png"}`,
		`{"title":"T","author":"X","summary":"S","image":"img.png"}`,
		`{"title":"T","author":"X","pages":10,"image":"img.png"}`,
		`{"title":"T","author":"X","pages":10,"summary":"S"}`,
	} {
		rec := doJSON(env, http.MethodPost, "/book", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestBookMutationsForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "reader@b.com", "pw", false)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	// Forbidden regardless of request body validity.
	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodPost, "/book", bookBody},
		{http.MethodPost, "/book", `{"garbage":true}`},
		{http.MethodPut, fmt.Sprintf("/book/%d", book.ID), bookBody},
		{http.MethodDelete, fmt.Sprintf("/book/%d", book.ID), ""},
	} {
		rec := doJSON(env, tc.method, tc.path, token, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestBookReadsAllowedForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "reader@b.com", "pw", false)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	rec := doJSON(env, http.MethodGet, "/book", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(env, http.MethodGet, fmt.Sprintf("/book/%d", book.ID), token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookUpdate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "Old"})

	rec := doJSON(env, http.MethodPut, fmt.Sprintf("/book/%d", book.ID), token, bookBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated types.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "T", updated.Title)

	stored, err := env.bookRepo.Get(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", stored.Title)
}

func TestBookNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	rec := doJSON(env, http.MethodGet, "/book/999", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(env, http.MethodPut, "/book/999", token, bookBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(env, http.MethodDelete, "/book/999", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookDelete(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	book, _ := env.bookRepo.Create(context.Background(), types.Book{Title: "T"})

	rec := doJSON(env, http.MethodDelete, fmt.Sprintf("/book/%d", book.ID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.bookRepo.Get(context.Background(), book.ID)
	assert.Error(t, err)
}

func TestBookInvalidID(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "admin@b.com", "pw", true)

	rec := doJSON(env, http.MethodGet, "/book/abc", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
