package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"join-board/domain"
)

const (
	maxBodySize          = 1 << 20
	headerIdempotencyKey = "Idempotency-Key"
)

// Options configures the API.
type Options struct {
	Gateway domain.Gateway
	Auth    Authenticator
	Tokens  TokenIssuer
	// Deduper and Feed are optional.
	Deduper Deduper
	Feed    Feed
	Logger  *log.Logger

	SaveBuffer         int
	SaveTimeout        time.Duration
	SaveHandoffTimeout time.Duration
}

// Server holds the state shared by all handlers.
type Server struct {
	auth     Authenticator
	tokens   TokenIssuer
	deduper  Deduper
	sessions *sessionRegistry
	broker   *updateBroker
	writer   *saveWriter
	log      *log.Logger
}

type boardHandler func(c echo.Context, b *domain.Board, session string) error

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, opts Options) *Server {
	writer := newSaveWriter(opts.Gateway, opts.Feed, opts.Logger, opts.SaveBuffer, opts.SaveTimeout, opts.SaveHandoffTimeout)
	broker := newUpdateBroker()
	s := &Server{
		auth:     opts.Auth,
		tokens:   opts.Tokens,
		deduper:  opts.Deduper,
		sessions: newSessionRegistry(opts.Gateway, writer, broker, opts.Logger),
		broker:   broker,
		writer:   writer,
		log:      opts.Logger,
	}

	e.GET("/healthz", healthz())
	e.GET("/api/stream", s.streamBoard())

	g := e.Group("/api", metricsMiddleware(opts.Logger))
	g.POST("/session", s.createSession())
	g.GET("/board", s.withBoard(getBoard))
	g.PUT("/board/search", s.withBoard(putSearch))
	g.GET("/summary", s.withBoard(getSummary))
	g.GET("/contacts", s.withBoard(getContacts))
	g.DELETE("/contacts/:id", s.withBoard(deleteContact))

	g.POST("/tasks", s.withBoard(s.postTask))
	g.GET("/tasks/:id", s.withBoard(getTask))
	g.PUT("/tasks/:id", s.withBoard(putTask))
	g.DELETE("/tasks/:id", s.withBoard(deleteTask))
	g.POST("/tasks/:id/move", s.withBoard(moveTask))
	g.POST("/tasks/:id/menu-move", s.withBoard(menuMoveTask))
	g.POST("/tasks/:id/menu", s.withBoard(toggleMenu))
	g.DELETE("/menu", s.withBoard(closeMenu))
	g.POST("/tasks/:id/subtasks/:sid/toggle", s.withBoard(toggleSubtask))

	g.POST("/drag/start", s.withBoard(dragStart))
	g.POST("/drag/over", s.withBoard(dragOver))
	g.POST("/drag/drop", s.withBoard(dragDrop))
	g.POST("/drag/end", s.withBoard(dragEnd))

	g.GET("/overlay", s.withBoard(getOverlay))
	g.POST("/overlay", s.withBoard(openOverlay))
	g.POST("/tasks/:id/edit", s.withBoard(editOverlay))
	g.POST("/overlay/submit", s.withBoard(submitOverlay))
	g.DELETE("/overlay", s.withBoard(closeOverlay))

	return s
}

// Close waits for pending saves.
func (s *Server) Close() {
	s.writer.close()
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// resolve authenticates the request and loads the session board.
func (s *Server) resolve(c echo.Context, header string) (*domain.Board, string, error) {
	m := metricsFrom(c)
	id, err := s.auth.SessionFromAuthHeader(header)
	if err != nil {
		m.SetErrorStage("auth")
		return nil, "", c.String(http.StatusUnauthorized, err.Error())
	}
	m.SetSession(id)

	start := time.Now()
	b, err := s.sessions.board(c.Request().Context(), id)
	m.ObserveLoad(time.Since(start))
	if err != nil {
		m.SetErrorStage("load")
		s.log.Errorf("load board failed, err: %v, session: %s", err, id)
		return nil, "", c.String(http.StatusServiceUnavailable, "board unavailable")
	}
	return b, id, nil
}

func (s *Server) withBoard(h boardHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, id, err := s.resolve(c, c.Request().Header.Get(echo.HeaderAuthorization))
		if b == nil {
			return err
		}
		return h(c, b, id)
	}
}

type sessionResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) createSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		id := uuid.NewString()
		token, exp, err := s.tokens.Issue(id)
		if err != nil {
			metricsFrom(c).SetErrorStage("issue_token")
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to create session")
		}
		metricsFrom(c).SetSession(id)
		return c.JSON(http.StatusCreated, sessionResponse{SessionID: id, Token: token, ExpiresAt: exp})
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	return sonic.ConfigStd.NewDecoder(lr).Decode(v)
}

func decodeTaskBody(c echo.Context) (map[string]any, bool) {
	var raw map[string]any
	if err := decodeBody(c, &raw); err != nil || raw == nil {
		metricsFrom(c).SetErrorStage("decode")
		return nil, false
	}
	return raw, true
}

func hasTitle(raw map[string]any) bool {
	title, _ := raw["title"].(string)
	return strings.TrimSpace(title) != ""
}

// parseLane accepts the four lane names and their spaced variants.
func parseLane(raw string) (domain.Status, bool) {
	st := domain.ParseStatus(raw)
	if st == domain.StatusTodo && strings.ToLower(strings.TrimSpace(raw)) != string(domain.StatusTodo) {
		return "", false
	}
	return st, true
}

func renderBoard(c echo.Context, b *domain.Board, query string) error {
	view := buildBoardView(b, query)
	metricsFrom(c).SetTasksVisible(visibleCount(view))
	return c.JSON(http.StatusOK, view)
}

func renderCard(c echo.Context, b *domain.Board, t domain.Task, status int) error {
	drag := b.Drag()
	v := newCardView(t, contactIndex(b.Contacts()), b.MoveMenuTaskID() == t.ID, drag.TaskID)
	return c.JSON(status, v)
}

func taskNotFound(c echo.Context) error {
	metricsFrom(c).SetErrorStage("not_found")
	return c.String(http.StatusNotFound, domain.ErrTaskNotFound.Error())
}

func getBoard(c echo.Context, b *domain.Board, _ string) error {
	query := b.Search()
	if c.QueryParams().Has("q") {
		query = c.QueryParam("q")
	}
	return renderBoard(c, b, query)
}

type searchRequest struct {
	Query string `json:"query"`
}

func putSearch(c echo.Context, b *domain.Board, _ string) error {
	var req searchRequest
	if err := decodeBody(c, &req); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.String(http.StatusBadRequest, "invalid body")
	}
	b.SetSearch(req.Query)
	return renderBoard(c, b, req.Query)
}

func getSummary(c echo.Context, b *domain.Board, _ string) error {
	return c.JSON(http.StatusOK, b.Summary())
}

func getContacts(c echo.Context, b *domain.Board, _ string) error {
	return c.JSON(http.StatusOK, b.Contacts())
}

func deleteContact(c echo.Context, b *domain.Board, _ string) error {
	if !b.RemoveContact(c.Param("id")) {
		metricsFrom(c).SetErrorStage("not_found")
		return c.String(http.StatusNotFound, "contact not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) postTask(c echo.Context, b *domain.Board, session string) error {
	ctx := c.Request().Context()
	raw, ok := decodeTaskBody(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}

	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	dedupe := key != "" && s.deduper != nil
	if dedupe {
		added, err := s.deduper.Add(ctx, session, key)
		if err != nil {
			metricsFrom(c).SetErrorStage("dedupe")
			s.log.Errorf("dedupe failed, err: %v, session: %s", err, session)
			return c.String(http.StatusServiceUnavailable, "dedupe unavailable")
		}
		if !added {
			metricsFrom(c).SetErrorStage("duplicate")
			return c.String(http.StatusConflict, "duplicate request")
		}
	}

	t, created := domain.Task{}, false
	if hasTitle(raw) {
		t, created = b.Add(raw)
	}
	if !created {
		if dedupe {
			if err := s.deduper.Remove(ctx, session, key); err != nil {
				s.log.Errorf("dedupe rollback failed, err: %v, key: %s, session: %s", err, key, session)
			}
		}
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "title is required")
	}
	return renderCard(c, b, t, http.StatusCreated)
}

func getTask(c echo.Context, b *domain.Board, _ string) error {
	t, ok := b.FindByID(c.Param("id"))
	if !ok {
		return taskNotFound(c)
	}
	return renderCard(c, b, t, http.StatusOK)
}

func putTask(c echo.Context, b *domain.Board, _ string) error {
	id := c.Param("id")
	if _, ok := b.FindByID(id); !ok {
		return taskNotFound(c)
	}
	raw, ok := decodeTaskBody(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if !hasTitle(raw) {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "title is required")
	}
	t, ok := b.Update(id, raw)
	if !ok {
		return taskNotFound(c)
	}
	return renderCard(c, b, t, http.StatusOK)
}

func deleteTask(c echo.Context, b *domain.Board, _ string) error {
	if !b.Delete(c.Param("id")) {
		return taskNotFound(c)
	}
	return c.NoContent(http.StatusNoContent)
}

type moveRequest struct {
	Status string `json:"status"`
	Index  int    `json:"index"`
}

func moveTask(c echo.Context, b *domain.Board, _ string) error {
	var req moveRequest
	if err := decodeBody(c, &req); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.String(http.StatusBadRequest, "invalid body")
	}
	st, ok := parseLane(req.Status)
	if !ok {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "invalid status")
	}
	if !b.MoveTask(c.Param("id"), st, req.Index) {
		return taskNotFound(c)
	}
	return renderBoard(c, b, b.Search())
}

func menuMoveTask(c echo.Context, b *domain.Board, _ string) error {
	var req moveRequest
	if err := decodeBody(c, &req); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.String(http.StatusBadRequest, "invalid body")
	}
	st, ok := parseLane(req.Status)
	if !ok {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "invalid status")
	}
	if !b.MoveToLaneEnd(c.Param("id"), st) {
		return taskNotFound(c)
	}
	return renderBoard(c, b, b.Search())
}

type menuResponse struct {
	Open    string              `json:"open"`
	Options []domain.MoveOption `json:"options"`
}

func toggleMenu(c echo.Context, b *domain.Board, _ string) error {
	id := c.Param("id")
	t, ok := b.FindByID(id)
	if !ok {
		return taskNotFound(c)
	}
	resp := menuResponse{Open: b.ToggleMoveMenu(id), Options: []domain.MoveOption{}}
	if resp.Open == id {
		resp.Options = domain.MoveMenuOptions(t.Status)
	}
	return c.JSON(http.StatusOK, resp)
}

func closeMenu(c echo.Context, b *domain.Board, _ string) error {
	b.CloseMoveMenu()
	return c.NoContent(http.StatusNoContent)
}

func toggleSubtask(c echo.Context, b *domain.Board, _ string) error {
	t, ok := b.ToggleSubtask(c.Param("id"), c.Param("sid"))
	if !ok {
		metricsFrom(c).SetErrorStage("not_found")
		return c.String(http.StatusNotFound, "subtask not found")
	}
	return renderCard(c, b, t, http.StatusOK)
}

type dragRequest struct {
	TaskID   string           `json:"taskId"`
	Status   string           `json:"status"`
	PointerY float64          `json:"pointerY"`
	Cards    []domain.CardBox `json:"cards"`
}

func decodeDrag(c echo.Context) (dragRequest, bool) {
	var req dragRequest
	if err := decodeBody(c, &req); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return req, false
	}
	return req, true
}

func dragStart(c echo.Context, b *domain.Board, _ string) error {
	req, ok := decodeDrag(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if !b.StartDrag(req.TaskID) {
		return taskNotFound(c)
	}
	return c.NoContent(http.StatusNoContent)
}

func dragOver(c echo.Context, b *domain.Board, _ string) error {
	req, ok := decodeDrag(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	st, valid := parseLane(req.Status)
	if !valid {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "invalid status")
	}
	idx := b.DragOver(st, req.PointerY, req.Cards)
	if idx < 0 {
		metricsFrom(c).SetErrorStage("no_drag")
		return c.String(http.StatusConflict, "no drag in progress")
	}
	return c.JSON(http.StatusOK, map[string]int{"previewIndex": idx})
}

func dragDrop(c echo.Context, b *domain.Board, _ string) error {
	req, ok := decodeDrag(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	st, valid := parseLane(req.Status)
	if !valid {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "invalid status")
	}
	if !b.Drop(st) {
		metricsFrom(c).SetErrorStage("no_drag")
		return c.String(http.StatusConflict, "no drag in progress")
	}
	return renderBoard(c, b, b.Search())
}

func dragEnd(c echo.Context, b *domain.Board, _ string) error {
	b.EndDrag()
	return c.NoContent(http.StatusNoContent)
}

type overlayResponse struct {
	Status domain.Status `json:"status"`
	EditID string        `json:"editId,omitempty"`
}

func getOverlay(c echo.Context, b *domain.Board, _ string) error {
	st, edit := b.Overlay()
	return c.JSON(http.StatusOK, overlayResponse{Status: st, EditID: edit})
}

func openOverlay(c echo.Context, b *domain.Board, _ string) error {
	var req moveRequest
	if err := decodeBody(c, &req); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.String(http.StatusBadRequest, "invalid body")
	}
	st, ok := parseLane(req.Status)
	if !ok {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "invalid status")
	}
	b.OpenAddTask(st)
	return getOverlay(c, b, "")
}

func editOverlay(c echo.Context, b *domain.Board, _ string) error {
	if !b.StartEdit(c.Param("id")) {
		return taskNotFound(c)
	}
	return getOverlay(c, b, "")
}

func submitOverlay(c echo.Context, b *domain.Board, _ string) error {
	raw, ok := decodeTaskBody(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid body")
	}
	if !hasTitle(raw) {
		metricsFrom(c).SetErrorStage("validate")
		return c.String(http.StatusBadRequest, "title is required")
	}
	_, editing := b.Overlay()
	t, ok := b.SubmitOverlay(raw)
	if !ok {
		return taskNotFound(c)
	}
	status := http.StatusCreated
	if editing != "" {
		status = http.StatusOK
	}
	return renderCard(c, b, t, status)
}

func closeOverlay(c echo.Context, b *domain.Board, _ string) error {
	b.CloseOverlay()
	return c.NoContent(http.StatusNoContent)
}
