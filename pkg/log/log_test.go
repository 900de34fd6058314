package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", ServiceName: "roombot", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("shown")
	line := lastLine(t, &buf)
	assert.Equal(t, "roombot", line[FieldService])
	assert.Equal(t, "shown", line["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	ctx := WithGuild(WithLogger(context.Background(), logger), "g1")
	l := Ctx(ctx)
	l.Info().Msg("hello")
	assert.Equal(t, "g1", lastLine(t, &buf)[FieldGuildID])
}

func TestStartCommand(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	ctx, done := StartCommand(context.Background(), logger, CommandScope{
		Command:   "chat",
		GuildID:   "g1",
		ChannelID: "c1",
		UserID:    "u1",
	})
	l := Ctx(ctx)
	l.Info().Msg("inside")
	inside := lastLine(t, &buf)
	assert.Equal(t, "chat", inside[FieldCommand])
	assert.NotEmpty(t, inside[FieldRequestID])

	done(errors.New("boom"))
	line := lastLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "u1", line[FieldUserID])
	assert.Equal(t, inside[FieldRequestID], line[FieldRequestID])
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer

	r := gin.New()
	r.Use(GinMiddleware(New(Config{Output: &buf}), "/health"))
	r.GET("/rooms/:id", func(c *gin.Context) {
		c.Set(FieldUserID, "operator")
		c.Status(http.StatusNoContent)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/rooms/10", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	line := lastLine(t, &buf)
	assert.Equal(t, "/rooms/:id", line[FieldPath])
	assert.Equal(t, float64(http.StatusNoContent), line[FieldStatus])
	assert.Equal(t, "operator", line[FieldUserID])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, "warn", lastLine(t, &buf)["level"])
}
