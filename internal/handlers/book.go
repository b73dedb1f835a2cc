package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/libshelf/apiserver/internal/services"
	"github.com/libshelf/apiserver/internal/storage"
	"github.com/libshelf/apiserver/internal/store"
	"github.com/libshelf/apiserver/types"
)

const (
	maxMultipartMemory = 8 << 20
	formFieldCover     = "cover"
)

// BookHandler provides HTTP handlers for the book catalog. The cover
// store is optional; cover routes are only mounted when it is present.
type BookHandler struct {
	bookService *services.BookService
	covers      *storage.CoverStore
}

// NewBookHandler constructs a handler with the provided dependencies.
func NewBookHandler(bookService *services.BookService, covers *storage.CoverStore) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		covers:      covers,
	}
}

// BookRouter registers book routes on the given router. Reads need a
// valid token, mutations additionally need the admin flag.
func BookRouter(
	r chi.Router,
	bookService *services.BookService,
	covers *storage.CoverStore,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewBookHandler(bookService, covers)

	r.Use(authMiddleware)
	r.Get("/", handler.ListBooks)
	r.With(RequireAdmin).Post("/", handler.CreateBook)
	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", handler.GetBook)
		r.With(RequireAdmin).Put("/", handler.UpdateBook)
		r.With(RequireAdmin).Delete("/", handler.DeleteBook)
		if covers != nil {
			r.Get("/cover", handler.GetCover)
			r.With(RequireAdmin).Post("/cover", handler.UploadCover)
		}
	})
}

// BookUpsertRequest is the create/update payload. Every key is
// required; pointer fields distinguish an absent key from a zero value.
type BookUpsertRequest struct {
	Title   *string `json:"title"`
	Author  *string `json:"author"`
	Pages   *int    `json:"pages"`
	Summary *string `json:"summary"`
	Image   *string `json:"image"`
}

// BookListResponse wraps the full catalog listing.
type BookListResponse struct {
	Books []types.Book `json:"books"`
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Books: books})
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	req, err := parseBookRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.bookService.Create(r.Context(), types.Book{
		Title:   *req.Title,
		Author:  *req.Author,
		Pages:   *req.Pages,
		Summary: *req.Summary,
		Image:   *req.Image,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseBookRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.bookService.Update(r.Context(), types.Book{
		ID:      id,
		Title:   *req.Title,
		Author:  *req.Author,
		Pages:   *req.Pages,
		Summary: *req.Summary,
		Image:   *req.Image,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update book")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.bookService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete book")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("book %d deleted", id)})
}

// UploadCover stores a cover image for an existing book and records its
// object key on the row.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.bookService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldCover)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cover file is required")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxCoverBytes {
		writeError(w, http.StatusBadRequest, "cover file too large")
		return
	}

	key, err := h.covers.Save(r.Context(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store cover")
		return
	}

	if err := h.bookService.SetImage(r.Context(), id, key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update book")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"image": key})
}

// GetCover streams the stored cover image for a book.
func (h *BookHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := h.bookService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}

	if book.Image == "" {
		writeError(w, http.StatusNotFound, "cover not found")
		return
	}

	reader, err := h.covers.Open(r.Context(), book.Image)
	if err != nil {
		writeError(w, http.StatusNotFound, "cover not found")
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		// Response already started; nothing sensible left to send.
		return
	}
}

func parseBookRequest(r *http.Request) (BookUpsertRequest, error) {
	var req BookUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BookUpsertRequest{}, errors.New("invalid request")
	}
	if req.Title == nil || req.Author == nil || req.Pages == nil || req.Summary == nil || req.Image == nil {
		return BookUpsertRequest{}, errors.New("missing required fields")
	}
	return req, nil
}
