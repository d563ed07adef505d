package domain

import "time"

// Importance levels a todo can carry. The literals are the Turkish domain
// values stored in the database.
const (
	ImportanceLow    = "düşük"
	ImportanceMedium = "orta"
	ImportanceHigh   = "yüksek"
)

// Lifecycle states of a todo. Completed is terminal; overdue is only ever
// set outside the request path.
const (
	StatusActive    = "aktif"
	StatusCompleted = "tamamlandı"
	StatusOverdue   = "süresi geçti"
)

// ValidImportance reports whether v is one of the accepted importance values.
func ValidImportance(v string) bool {
	return v == ImportanceLow || v == ImportanceMedium || v == ImportanceHigh
}

// ValidStatus reports whether v is one of the accepted status values.
func ValidStatus(v string) bool {
	return v == StatusActive || v == StatusCompleted || v == StatusOverdue
}

// CanComplete reports whether a todo in the given status may still be marked
// completed.
func CanComplete(status string) bool {
	return status != StatusCompleted
}

// Category is a named grouping that todos may reference.
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Todo is a single task row.
type Todo struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	CategoryID   *int64     `db:"category_id" json:"category_id"`
	Importance   string     `db:"importance" json:"importance"`
	Status       string     `db:"status" json:"status"`
	ImagePath    *string    `db:"image_path" json:"image_path"`
	TrelloCardID *string    `db:"trello_card_id" json:"trello_card_id"`
	Deadline     *time.Time `db:"deadline" json:"deadline"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// TodoWithCategory is a Todo joined to its category's name. The name is nil
// when the category was deleted.
type TodoWithCategory struct {
	Todo
	CategoryName *string `db:"category_name" json:"category_name"`
}

// NewTodo carries a validated creation payload.
type NewTodo struct {
	Title      string
	CategoryID int64
	Importance string
	Deadline   *time.Time
	ImagePath  *string
}

// TodoUpdate is a full-replacement update payload.
type TodoUpdate struct {
	Title      string
	CategoryID int64
	Importance string
	Deadline   *time.Time
}

// TodoFilter narrows a listing. Zero values mean no constraint. StartDate and
// EndDate bound the deadline by calendar date, both inclusive.
type TodoFilter struct {
	Status     string
	Importance string
	CategoryID *int64
	StartDate  *time.Time
	EndDate    *time.Time
}
