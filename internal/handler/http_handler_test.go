package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurzen/roombot/internal/domain"
	"github.com/aurzen/roombot/internal/platform"
	"github.com/aurzen/roombot/internal/service"
	"github.com/aurzen/roombot/pkg/jwt"
	"github.com/aurzen/roombot/pkg/middleware"
)

type stubRoomService struct {
	service.RoomService

	rooms    []domain.Room
	sweepErr error
	expired  service.ExpireResult
}

func (s *stubRoomService) ListGuilds(context.Context) ([]string, error) {
	return []string{"g1", "g2"}, nil
}

func (s *stubRoomService) ListRooms(context.Context, string) ([]domain.Room, error) {
	return s.rooms, nil
}

func (s *stubRoomService) GetRoom(_ context.Context, _, roomID string) (*domain.Room, error) {
	for _, r := range s.rooms {
		if r.ID == roomID {
			return &r, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (s *stubRoomService) ExpireCheck(context.Context, string, string) (service.ExpireResult, error) {
	return s.expired, nil
}

func (s *stubRoomService) Sweep(context.Context) (*service.SweepSummary, error) {
	if s.sweepErr != nil {
		return nil, s.sweepErr
	}
	return &service.SweepSummary{Guilds: 1, Checked: 3, Deleted: 1}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupRouter(t *testing.T, svc service.RoomService) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager, err := jwt.NewManager("test-secret", "roombot", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(jwtManager)).RegisterRoutes(r)
	return r, jwtManager
}

func do(t *testing.T, r http.Handler, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func adminToken(t *testing.T, m *jwt.Manager) string {
	t.Helper()
	token, _, err := m.Issue("operator", jwt.RoleAdmin)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t, &stubRoomService{})

	w, body := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
}

func TestAuth(t *testing.T) {
	r, m := setupRouter(t, &stubRoomService{})

	w, body := do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer, _, err := m.Issue("someone", "viewer")
	require.NoError(t, err)
	w, body = do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms", viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
}

func TestListAndGetRooms(t *testing.T) {
	svc := &stubRoomService{rooms: []domain.Room{
		{ID: "10", GuildID: "g1", Kind: domain.RoomKindChat, Members: []string{"1", "2"}, State: domain.RoomStateActive},
	}}
	r, m := setupRouter(t, svc)
	token := adminToken(t, m)

	w, body := do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms", token)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rooms []domain.Room `json:"rooms"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "10", list.Rooms[0].ID)

	w, body = do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms/10", token)
	require.Equal(t, http.StatusOK, w.Code)
	var room domain.Room
	require.NoError(t, json.Unmarshal(body.Data, &room))
	assert.Equal(t, []string{"1", "2"}, room.Members)

	w, body = do(t, r, http.MethodGet, "/api/v1/guilds/g1/rooms/404", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestListGuilds(t *testing.T) {
	r, m := setupRouter(t, &stubRoomService{})

	w, body := do(t, r, http.MethodGet, "/api/v1/guilds", adminToken(t, m))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Guilds []string `json:"guilds"`
		Total  int      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &list))
	assert.Equal(t, []string{"g1", "g2"}, list.Guilds)
	assert.Equal(t, 2, list.Total)
}

func TestSweep(t *testing.T) {
	svc := &stubRoomService{}
	r, m := setupRouter(t, svc)
	token := adminToken(t, m)

	w, body := do(t, r, http.MethodPost, "/api/v1/sweep", token)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.SweepSummary
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Equal(t, service.SweepSummary{Guilds: 1, Checked: 3, Deleted: 1}, summary)

	svc.sweepErr = platform.Wrap("Guilds", "", platform.ErrForbidden)
	w, body = do(t, r, http.MethodPost, "/api/v1/sweep", token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "PLATFORM_ERROR", body.Error.Code)

	svc.sweepErr = errors.New("db down")
	w, body = do(t, r, http.MethodPost, "/api/v1/sweep", token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestExpireRoom(t *testing.T) {
	r, m := setupRouter(t, &stubRoomService{expired: service.ExpireStale})

	w, body := do(t, r, http.MethodPost, "/api/v1/guilds/g1/rooms/10/expire", adminToken(t, m))
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Result  string `json:"result"`
		Deleted bool   `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &out))
	assert.Equal(t, "stale", out.Result)
	assert.True(t, out.Deleted)
}
