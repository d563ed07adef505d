package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"todo-api/domain"
)

// ErrNotFound signals that the referenced row does not exist.
var ErrNotFound = errors.New("not found")

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var todoColumns = []string{
	"todos.id",
	"todos.title",
	"todos.category_id",
	"todos.importance",
	"todos.status",
	"todos.image_path",
	"todos.trello_card_id",
	"todos.deadline",
	"todos.created_at",
	"todos.updated_at",
}

// Storage provides typed access to the relational store.
type Storage struct {
	db *sqlx.DB
}

// New wraps an existing database handle.
func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Ping verifies the connection is still alive.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.db.Close()
}

// ListCategories returns all categories ordered by id.
func (s *Storage) ListCategories(ctx context.Context) ([]domain.Category, error) {
	q, args, err := psql.Select("id", "name").From("categories").OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	cats := []domain.Category{}
	if err := s.db.SelectContext(ctx, &cats, q, args...); err != nil {
		return nil, err
	}
	return cats, nil
}

func filterConds(f domain.TodoFilter) squirrel.And {
	conds := squirrel.And{}
	if f.Status != "" {
		conds = append(conds, squirrel.Eq{"todos.status": f.Status})
	}
	if f.Importance != "" {
		conds = append(conds, squirrel.Eq{"todos.importance": f.Importance})
	}
	if f.CategoryID != nil {
		conds = append(conds, squirrel.Eq{"todos.category_id": *f.CategoryID})
	}
	if f.StartDate != nil {
		conds = append(conds, squirrel.GtOrEq{"todos.deadline": *f.StartDate})
	}
	if f.EndDate != nil {
		// inclusive by calendar date
		conds = append(conds, squirrel.Lt{"todos.deadline": f.EndDate.AddDate(0, 0, 1)})
	}
	return conds
}

// ListTodos returns one page of todos matching the filter, newest first,
// together with the total number of matching rows.
func (s *Storage) ListTodos(ctx context.Context, f domain.TodoFilter, page, pageSize int) ([]domain.TodoWithCategory, int, error) {
	conds := filterConds(f)

	countB := psql.Select("COUNT(*)").From("todos")
	if len(conds) > 0 {
		countB = countB.Where(conds)
	}
	q, args, err := countB.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, q, args...); err != nil {
		return nil, 0, err
	}

	listB := psql.Select(append(todoColumns, "categories.name AS category_name")...).
		From("todos").
		LeftJoin("categories ON todos.category_id = categories.id").
		OrderBy("todos.created_at DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize))
	if len(conds) > 0 {
		listB = listB.Where(conds)
	}
	q, args, err = listB.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows := []domain.TodoWithCategory{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetTodoByID returns a single todo joined to its category name.
func (s *Storage) GetTodoByID(ctx context.Context, id int64) (domain.TodoWithCategory, error) {
	q, args, err := psql.Select(append(todoColumns, "categories.name AS category_name")...).
		From("todos").
		LeftJoin("categories ON todos.category_id = categories.id").
		Where(squirrel.Eq{"todos.id": id}).
		ToSql()
	if err != nil {
		return domain.TodoWithCategory{}, err
	}
	var row domain.TodoWithCategory
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TodoWithCategory{}, ErrNotFound
		}
		return domain.TodoWithCategory{}, err
	}
	return row, nil
}

// InsertTodo creates a row and returns it with generated id and timestamps.
func (s *Storage) InsertTodo(ctx context.Context, t domain.NewTodo) (domain.Todo, error) {
	q, args, err := psql.Insert("todos").
		Columns("title", "category_id", "importance", "deadline", "image_path").
		Values(t.Title, t.CategoryID, t.Importance, t.Deadline, t.ImagePath).
		Suffix("RETURNING id, title, category_id, importance, status, image_path, trello_card_id, deadline, created_at, updated_at").
		ToSql()
	if err != nil {
		return domain.Todo{}, err
	}
	var row domain.Todo
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		return domain.Todo{}, err
	}
	return row, nil
}

// UpdateTodo replaces the mutable fields of a todo and refreshes updated_at.
// It returns the number of rows affected; zero means the id does not exist.
func (s *Storage) UpdateTodo(ctx context.Context, id int64, u domain.TodoUpdate) (int64, error) {
	q, args, err := psql.Update("todos").
		Set("title", u.Title).
		Set("category_id", u.CategoryID).
		Set("importance", u.Importance).
		Set("deadline", u.Deadline).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q, args)
}

// DeleteTodo removes a row, returning the number of rows affected.
func (s *Storage) DeleteTodo(ctx context.Context, id int64) (int64, error) {
	q, args, err := psql.Delete("todos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q, args)
}

// UpdateTodoStatus writes a new status and refreshes updated_at.
func (s *Storage) UpdateTodoStatus(ctx context.Context, id int64, status string) (int64, error) {
	q, args, err := psql.Update("todos").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q, args)
}

// UpdateTodoImportance writes a new importance and refreshes updated_at.
func (s *Storage) UpdateTodoImportance(ctx context.Context, id int64, importance string) (int64, error) {
	q, args, err := psql.Update("todos").
		Set("importance", importance).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, q, args)
}

// SetTodoCardID records the external card id mirrored for a todo.
func (s *Storage) SetTodoCardID(ctx context.Context, id int64, cardID string) error {
	q, args, err := psql.Update("todos").
		Set("trello_card_id", cardID).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, q, args)
	return err
}

func (s *Storage) exec(ctx context.Context, q string, args []interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
