// Package web exposes the store's operations over a local HTTP
// surface. Transport concerns live here; the store owns all semantics.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/CaroLe-prw/zap/internal/apperr"
	"github.com/CaroLe-prw/zap/internal/db"
	"github.com/CaroLe-prw/zap/internal/model"
)

type Server struct {
	store  *db.Store
	logger *log.Logger
}

func NewServer(store *db.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{store: store, logger: logger}
}

// Register wires up all API routes on the provided Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.JSONSerializer = sonicSerializer{}
	e.Use(s.requestLogger())

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/api/tasks", s.addTask)
	e.GET("/api/tasks", s.listTasks)
	e.POST("/api/tasks/:id/start", s.taskTransition(s.store.StartTask))
	e.POST("/api/tasks/:id/stop", s.taskTransition(s.store.StopTask))
	e.POST("/api/tasks/:id/finish", s.taskTransition(s.store.FinishTask))
	e.POST("/api/tasks/:id/reopen", s.taskTransition(s.store.ReopenTask))

	e.GET("/api/categories", s.listCategories)
	e.POST("/api/categories", s.addCategory)
	e.DELETE("/api/categories/:id", s.deleteCategory)

	e.GET("/api/stats/today", s.todayStats)
	e.GET("/api/stats/week", s.weekStats)
	e.GET("/api/stats/month", s.monthStats)

	e.GET("/api/daily-focus", s.getDailyFocus)
	e.PUT("/api/daily-focus", s.upsertDailyFocus)
	e.POST("/api/daily-focus/:id/toggle", s.toggleDailyFocus)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			err := next(c)

			s.logger.WithFields(log.Fields{
				"request_id": requestID,
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     c.Response().Status,
				"elapsed":    time.Since(start).String(),
			}).Debug("request")
			return err
		}
	}
}

func (s *Server) addTask(c echo.Context) error {
	var req db.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	id, err := s.store.CreateTask(c.Request().Context(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) listTasks(c echo.Context) error {
	var query db.TaskQuery
	query.PageIndex, _ = strconv.Atoi(c.QueryParam("page_index"))
	query.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if name := c.QueryParam("task_name"); name != "" {
		query.TaskName = &name
	}
	if raw := c.QueryParam("done"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || !model.TaskStatus(value).Valid() {
			return c.JSON(http.StatusBadRequest, errorBody("invalid done filter"))
		}
		status := model.TaskStatus(value)
		query.Done = &status
	}

	page, err := s.store.ListTasks(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) taskTransition(op func(ctx context.Context, taskID int64) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("invalid task id"))
		}
		if err := op(c.Request().Context(), id); err != nil {
			return s.fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.store.ListCategories(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (s *Server) addCategory(c echo.Context) error {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	id, err := s.store.AddCategory(c.Request().Context(), req.Name, req.Color)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) deleteCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid category id"))
	}
	if err := s.store.DeleteCategory(c.Request().Context(), id); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) todayStats(c echo.Context) error {
	stats, err := s.store.TodayStats(c.Request().Context(), dateQuery(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) weekStats(c echo.Context) error {
	stats, err := s.store.WeekStats(c.Request().Context(), dateQuery(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) monthStats(c echo.Context) error {
	stats, err := s.store.MonthStats(c.Request().Context(), dateQuery(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) getDailyFocus(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return c.JSON(http.StatusBadRequest, errorBody("date is required"))
	}
	focus, err := s.store.GetDailyFocus(c.Request().Context(), date)
	if err != nil {
		return s.fail(c, err)
	}
	if focus == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, focus)
}

func (s *Server) upsertDailyFocus(c echo.Context) error {
	var req struct {
		Date    string `json:"date"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.Date == "" {
		return c.JSON(http.StatusBadRequest, errorBody("date is required"))
	}

	focus, err := s.store.UpsertDailyFocus(c.Request().Context(), req.Date, req.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, focus)
}

func (s *Server) toggleDailyFocus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid id"))
	}
	focus, err := s.store.ToggleDailyFocus(c.Request().Context(), id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, focus)
}

func dateQuery(c echo.Context) db.DateQuery {
	var query db.DateQuery
	if start := c.QueryParam("start_date"); start != "" {
		query.StartDate = &start
	}
	if end := c.QueryParam("end_date"); end != "" {
		query.EndDate = &end
	}
	return query
}

// fail maps a taxonomy error to its HTTP status; infrastructure
// failures become 500s and get logged.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusFor(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	return c.JSON(status, errorBody(err.Error()))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindTaskNotFound, apperr.KindCategoryNotFound, apperr.KindTimeEntryNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTaskData, apperr.KindInvalidCategoryData:
		return http.StatusBadRequest
	case apperr.KindTaskAlreadyStarted, apperr.KindTaskNotStarted, apperr.KindTaskNotDone, apperr.KindCategoryHasTasks:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
