package api

import (
	"strings"
	"time"

	"todo-api/domain"
)

// todoPayload is the flat request shape shared by create (multipart fields)
// and update (JSON body).
type todoPayload struct {
	Title      string  `json:"title"`
	CategoryID int64   `json:"category_id"`
	Importance string  `json:"importance"`
	Deadline   *string `json:"deadline"`
}

// validateTodoPayload checks the payload and returns field-level error
// messages, empty when the payload is valid. It performs no side effects.
func validateTodoPayload(p todoPayload) map[string]string {
	errs := map[string]string{}
	title := strings.TrimSpace(p.Title)
	switch {
	case title == "":
		errs["title"] = "Title is required"
	case len([]rune(title)) > 100:
		errs["title"] = "Title must be 100 characters or less"
	}
	if p.CategoryID <= 0 {
		errs["category_id"] = "Category ID must be a positive number"
	}
	if !domain.ValidImportance(p.Importance) {
		errs["importance"] = "Importance must be 'düşük', 'orta', or 'yüksek'"
	}
	return errs
}

var deadlineFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDeadline normalizes the optional deadline string to a timestamp or
// nil. The second return value is false when the string is unparseable.
func parseDeadline(v *string) (*time.Time, bool) {
	if v == nil {
		return nil, true
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil, true
	}
	for _, layout := range deadlineFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}
