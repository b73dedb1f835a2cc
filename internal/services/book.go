package services

import (
	"context"
	"log"

	"github.com/libshelf/apiserver/internal/events"
	"github.com/libshelf/apiserver/types"
)

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context) ([]types.Book, error)
	Get(ctx context.Context, id int) (types.Book, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, book types.Book) (types.Book, error)
	SetImage(ctx context.Context, id int, image string) error
	Delete(ctx context.Context, id int) error
}

// BookService encapsulates book use-cases.
type BookService struct {
	repo      BookRepository
	publisher *events.Publisher
}

func NewBookService(repo BookRepository, publisher *events.Publisher) *BookService {
	return &BookService{repo: repo, publisher: publisher}
}

func (s *BookService) List(ctx context.Context) ([]types.Book, error) {
	return s.repo.List(ctx)
}

func (s *BookService) Get(ctx context.Context, id int) (types.Book, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookService) Create(ctx context.Context, book types.Book) (types.Book, error) {
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return types.Book{}, err
	}
	s.publish(ctx, events.ActionCreated, created.ID)
	return created, nil
}

func (s *BookService) Update(ctx context.Context, book types.Book) (types.Book, error) {
	updated, err := s.repo.Update(ctx, book)
	if err != nil {
		return types.Book{}, err
	}
	s.publish(ctx, events.ActionUpdated, updated.ID)
	return updated, nil
}

// SetImage records the stored cover reference for a book.
func (s *BookService) SetImage(ctx context.Context, id int, image string) error {
	if err := s.repo.SetImage(ctx, id, image); err != nil {
		return err
	}
	s.publish(ctx, events.ActionUpdated, id)
	return nil
}

func (s *BookService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.ActionDeleted, id)
	return nil
}

func (s *BookService) publish(ctx context.Context, action string, id int) {
	ev := events.Event{
		Entity: events.EntityBook,
		Action: action,
		ID:     id,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s.%s: %v", ev.Entity, ev.Action, err)
	}
}
