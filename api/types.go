package api

import (
	"context"

	"todo-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTodos(ctx context.Context, f domain.TodoFilter, page, pageSize int) ([]domain.TodoWithCategory, int, error)
	GetTodoByID(ctx context.Context, id int64) (domain.TodoWithCategory, error)
	InsertTodo(ctx context.Context, t domain.NewTodo) (domain.Todo, error)
	UpdateTodo(ctx context.Context, id int64, u domain.TodoUpdate) (int64, error)
	DeleteTodo(ctx context.Context, id int64) (int64, error)
	UpdateTodoStatus(ctx context.Context, id int64, status string) (int64, error)
	UpdateTodoImportance(ctx context.Context, id int64, importance string) (int64, error)
	SetTodoCardID(ctx context.Context, id int64, cardID string) error
	Ping(ctx context.Context) error
}

// CardSync mirrors todo lifecycle events to the external card service. All
// calls are best effort; failures never roll back the local write, except
// card creation under the create-required policy.
type CardSync interface {
	CreateCard(ctx context.Context, todo domain.Todo) (string, error)
	UpdateCard(ctx context.Context, cardID string, todo domain.Todo) error
	DeleteCard(ctx context.Context, cardID string) error
	AttachImage(ctx context.Context, cardID, imageURL string) error
}

// Config carries handler-level settings resolved at startup.
type Config struct {
	// UploadDir is where multipart image parts are stored.
	UploadDir string
	// PublicBaseURL prefixes stored filenames when building attachment links.
	PublicBaseURL string
	// CardCreateRequired makes a failed card creation abort todo creation.
	CardCreateRequired bool
}
