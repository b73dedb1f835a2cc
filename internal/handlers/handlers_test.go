package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/libshelf/apiserver/internal/services"
	"github.com/libshelf/apiserver/internal/storage"
	"github.com/libshelf/apiserver/internal/store"
	"github.com/libshelf/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// --- in-memory fakes shared by the handler tests ---

type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByToken(ctx context.Context, token string) (types.User, error) {
	for _, user := range f.users {
		if user.Token == token {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = f.nextID
	user.CreatedOn = time.Now().UTC()
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	existing, ok := f.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	f.users[user.ID] = existing
	return existing, nil
}

func (f *fakeUserRepo) UpdateToken(ctx context.Context, id int, token string, exp time.Time) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Token = token
	user.TokenExp = exp
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeBookRepo struct {
	nextID int
	books  map[int]types.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{nextID: 1, books: map[int]types.Book{}}
}

func (f *fakeBookRepo) List(ctx context.Context) ([]types.Book, error) {
	books := []types.Book{}
	for _, book := range f.books {
		books = append(books, book)
	}
	return books, nil
}

func (f *fakeBookRepo) Get(ctx context.Context, id int) (types.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return book, nil
}

func (f *fakeBookRepo) Create(ctx context.Context, book types.Book) (types.Book, error) {
	book.ID = f.nextID
	f.nextID++
	f.books[book.ID] = book
	return book, nil
}

func (f *fakeBookRepo) Update(ctx context.Context, book types.Book) (types.Book, error) {
	if _, ok := f.books[book.ID]; !ok {
		return types.Book{}, store.ErrNotFound
	}
	f.books[book.ID] = book
	return book, nil
}

func (f *fakeBookRepo) SetImage(ctx context.Context, id int, image string) error {
	book, ok := f.books[id]
	if !ok {
		return store.ErrNotFound
	}
	book.Image = image
	f.books[id] = book
	return nil
}

func (f *fakeBookRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.books, id)
	return nil
}

// --- router and seeding helpers ---

type testEnv struct {
	router   http.Handler
	userRepo *fakeUserRepo
	bookRepo *fakeBookRepo
	userSvc  *services.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithCovers(t, nil)
}

func newTestEnvWithCovers(t *testing.T, covers *storage.CoverStore) *testEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	bookRepo := newFakeBookRepo()

	userService := services.NewUserService(userRepo, nil)
	bookService := services.NewBookService(bookRepo, nil)
	authMiddleware := RequireAuth(userService)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService)
	router.Route("/user", func(r chi.Router) {
		UserRouter(r, userService, authMiddleware)
	})
	router.Route("/book", func(r chi.Router) {
		BookRouter(r, bookService, covers, authMiddleware)
	})

	return &testEnv{
		router:   router,
		userRepo: userRepo,
		bookRepo: bookRepo,
		userSvc:  userService,
	}
}

// seedUser stores a user with a bcrypt hash of password and a live token.
func (e *testEnv) seedUser(t *testing.T, email, password string, isAdmin bool) (types.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	user, err := e.userRepo.Create(context.Background(), types.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: string(hashed),
		IsAdmin:      isAdmin,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token, err := e.userSvc.IssueToken(context.Background(), user, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func newBasicAuthRequest(email, password string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.SetBasicAuth(email, password)
	return req
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}
