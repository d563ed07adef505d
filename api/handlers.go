package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
	"todo-api/storage"
)

const (
	defaultPage     = 1
	defaultPageSize = 5
	maxPageSize     = 100

	maxBodySize  = 1 << 20
	maxFieldSize = 1 << 16
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, cards CardSync, cfg Config, logger *log.Logger) {
	e.GET("/", hello())
	e.GET("/healthz", healthz(store))
	e.GET("/categories", getCategories(store, logger))
	e.GET("/todos", getTodos(store, logger))
	e.GET("/todos/:id", getTodoByID(store, logger))
	e.POST("/todos", createTodo(store, cards, cfg, logger))
	e.PUT("/todos/:id", updateTodo(store, cards, logger))
	e.DELETE("/todos/:id", deleteTodo(store, cards, logger))
	e.PATCH("/todos/:id/status", updateTodoStatus(store, logger))
	e.PATCH("/todos/:id/importance", updateTodoImportance(store, logger))
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Data       []domain.TodoWithCategory `json:"data"`
	Pagination pagination                `json:"pagination"`
}

func hello() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"hello": "world"})
	}
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

func getCategories(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		cats, err := store.ListCategories(c.Request().Context())
		if err != nil {
			return internalError(c, logger, err)
		}
		return c.JSON(http.StatusOK, cats)
	}
}

func getTodos(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, pageSize, err := parsePagination(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		}
		filter, err := parseTodoFilter(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
		}
		rows, total, err := store.ListTodos(c.Request().Context(), filter, page, pageSize)
		if err != nil {
			return internalError(c, logger, err)
		}
		totalPages := 0
		if total > 0 {
			totalPages = (total + pageSize - 1) / pageSize
		}
		return c.JSON(http.StatusOK, listResponse{
			Data: rows,
			Pagination: pagination{
				Total:      total,
				Page:       page,
				PageSize:   pageSize,
				TotalPages: totalPages,
			},
		})
	}
}

func getTodoByID(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return notFound(c)
		}
		row, err := store.GetTodoByID(c.Request().Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return internalError(c, logger, err)
		}
		return c.JSON(http.StatusOK, row)
	}
}

func createTodo(store Storage, cards CardSync, cfg Config, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		mr, err := c.Request().MultipartReader()
		if err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "multipart form expected"})
		}

		fields := map[string]string{}
		imagePath := ""
		removeImage := func() {
			if imagePath == "" {
				return
			}
			if err := os.Remove(filepath.Join(cfg.UploadDir, imagePath)); err != nil {
				logger.WithError(err).Warn("uploaded file could not be removed")
			}
			imagePath = ""
		}

		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				removeImage()
				return internalError(c, logger, err)
			}
			if part.FileName() != "" {
				if imagePath != "" {
					part.Close()
					removeImage()
					return c.JSON(http.StatusBadRequest, messageResponse{Message: "only one file may be uploaded"})
				}
				name, err := saveUploadedImage(part, cfg.UploadDir)
				part.Close()
				if errors.Is(err, errUnsupportedMedia) {
					return c.JSON(http.StatusBadRequest, messageResponse{Message: "Only .png and .jpeg formats are allowed"})
				}
				if err != nil {
					return internalError(c, logger, err)
				}
				imagePath = name
				continue
			}
			val, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
			part.Close()
			if err != nil {
				removeImage()
				return internalError(c, logger, err)
			}
			fields[part.FormName()] = string(val)
		}

		payload := todoPayload{
			Title:      fields["title"],
			Importance: fields["importance"],
		}
		if v, ok := fields["deadline"]; ok {
			payload.Deadline = &v
		}
		if v := strings.TrimSpace(fields["category_id"]); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				payload.CategoryID = id
			}
		}

		if errs := validateTodoPayload(payload); len(errs) > 0 {
			removeImage()
			return c.JSON(http.StatusBadRequest, validationResponse{Errors: errs})
		}
		deadline, ok := parseDeadline(payload.Deadline)
		if !ok {
			removeImage()
			return c.JSON(http.StatusBadRequest, validationResponse{Errors: map[string]string{
				"deadline": "Deadline must be a valid date",
			}})
		}

		newTodo := domain.NewTodo{
			Title:      strings.TrimSpace(payload.Title),
			CategoryID: payload.CategoryID,
			Importance: payload.Importance,
			Deadline:   deadline,
		}
		if imagePath != "" {
			p := imagePath
			newTodo.ImagePath = &p
		}

		row, err := store.InsertTodo(ctx, newTodo)
		if err != nil {
			removeImage()
			return internalError(c, logger, err)
		}

		cardID, cardErr := cards.CreateCard(ctx, row)
		if cardErr != nil {
			if cfg.CardCreateRequired {
				if _, delErr := store.DeleteTodo(ctx, row.ID); delErr != nil {
					logger.WithError(delErr).Error("todo rollback after card failure did not complete")
				}
				removeImage()
				logger.WithError(cardErr).Error("trello card could not be created")
				return c.JSON(http.StatusBadGateway, messageResponse{Message: "card service unavailable"})
			}
			logger.WithError(cardErr).Warn("trello card could not be created")
		} else if cardID != "" {
			if err := store.SetTodoCardID(ctx, row.ID, cardID); err != nil {
				logger.WithError(err).Error("trello card id could not be stored")
			} else {
				row.TrelloCardID = &cardID
			}
			if imagePath != "" {
				imageURL := strings.TrimRight(cfg.PublicBaseURL, "/") + "/uploads/" + imagePath
				if err := cards.AttachImage(ctx, cardID, imageURL); err != nil {
					logger.WithError(err).Warn("trello attachment could not be added")
				}
			}
		}

		return c.JSON(http.StatusCreated, row)
	}
}

func updateTodo(store Storage, cards CardSync, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := parseID(c)
		if err != nil {
			return notFound(c)
		}
		var payload todoPayload
		if err := decodeBody(c, &payload); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}
		if errs := validateTodoPayload(payload); len(errs) > 0 {
			return c.JSON(http.StatusBadRequest, validationResponse{Errors: errs})
		}
		deadline, ok := parseDeadline(payload.Deadline)
		if !ok {
			return c.JSON(http.StatusBadRequest, validationResponse{Errors: map[string]string{
				"deadline": "Deadline must be a valid date",
			}})
		}

		n, err := store.UpdateTodo(ctx, id, domain.TodoUpdate{
			Title:      strings.TrimSpace(payload.Title),
			CategoryID: payload.CategoryID,
			Importance: payload.Importance,
			Deadline:   deadline,
		})
		if err != nil {
			return internalError(c, logger, err)
		}
		if n == 0 {
			return notFound(c)
		}

		row, err := store.GetTodoByID(ctx, id)
		if err != nil {
			return internalError(c, logger, err)
		}
		if row.TrelloCardID != nil {
			if err := cards.UpdateCard(ctx, *row.TrelloCardID, row.Todo); err != nil {
				logger.WithError(err).Warn("trello card could not be updated")
			}
		}
		return c.JSON(http.StatusOK, row)
	}
}

func deleteTodo(store Storage, cards CardSync, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := parseID(c)
		if err != nil {
			return notFound(c)
		}
		row, err := store.GetTodoByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return internalError(c, logger, err)
		}
		if row.TrelloCardID != nil {
			if err := cards.DeleteCard(ctx, *row.TrelloCardID); err != nil {
				logger.WithError(err).Warn("trello card could not be deleted")
			}
		}
		n, err := store.DeleteTodo(ctx, id)
		if err != nil {
			return internalError(c, logger, err)
		}
		if n == 0 {
			return notFound(c)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func updateTodoStatus(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := parseID(c)
		if err != nil {
			return notFound(c)
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(c, &body); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}
		if body.Status != domain.StatusCompleted {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Status can only be updated to 'tamamlandı'"})
		}

		row, err := store.GetTodoByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(c)
		}
		if err != nil {
			return internalError(c, logger, err)
		}
		if !domain.CanComplete(row.Status) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Completed todo cannot be changed again"})
		}

		if _, err := store.UpdateTodoStatus(ctx, id, domain.StatusCompleted); err != nil {
			return internalError(c, logger, err)
		}
		updated, err := store.GetTodoByID(ctx, id)
		if err != nil {
			return internalError(c, logger, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func updateTodoImportance(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := parseID(c)
		if err != nil {
			return notFound(c)
		}
		var body struct {
			Importance string `json:"importance"`
		}
		if err := decodeBody(c, &body); err != nil {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid body"})
		}
		if !domain.ValidImportance(body.Importance) {
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid importance value"})
		}

		n, err := store.UpdateTodoImportance(ctx, id, body.Importance)
		if err != nil {
			return internalError(c, logger, err)
		}
		if n == 0 {
			return notFound(c)
		}
		row, err := store.GetTodoByID(ctx, id)
		if err != nil {
			return internalError(c, logger, err)
		}
		return c.JSON(http.StatusOK, row)
	}
}

func decodeBody(c echo.Context, v interface{}) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(v)
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parsePagination(c echo.Context) (int, int, error) {
	page, pageSize := defaultPage, defaultPageSize
	if v := strings.TrimSpace(c.QueryParam("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, errors.New("Invalid page value")
		}
		page = n
	}
	if v := strings.TrimSpace(c.QueryParam("pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPageSize {
			return 0, 0, errors.New("Invalid pageSize value")
		}
		pageSize = n
	}
	return page, pageSize, nil
}

func parseTodoFilter(c echo.Context) (domain.TodoFilter, error) {
	var f domain.TodoFilter
	// enum values must be screened here: Postgres rejects a cast of an
	// unknown literal to the enum type instead of matching zero rows
	if v := c.QueryParam("status"); v != "" {
		if !domain.ValidStatus(v) {
			return f, errors.New("Invalid status value")
		}
		f.Status = v
	}
	if v := c.QueryParam("importance"); v != "" {
		if !domain.ValidImportance(v) {
			return f, errors.New("Invalid importance value")
		}
		f.Importance = v
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, errors.New("Invalid category_id value")
		}
		f.CategoryID = &id
	}
	if v := c.QueryParam("startDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("Invalid startDate value")
		}
		f.StartDate = &t
	}
	if v := c.QueryParam("endDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, errors.New("Invalid endDate value")
		}
		f.EndDate = &t
	}
	return f, nil
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, messageResponse{Message: "Todo not found"})
}

func internalError(c echo.Context, logger *log.Logger, err error) error {
	logger.WithError(err).Error("request failed")
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal Server Error"})
}
