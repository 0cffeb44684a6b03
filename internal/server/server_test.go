package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutri-bot/internal/bot"
	"nutri-bot/pkg/logger"
)

type staticStats bot.Stats

func (s staticStats) Stats() bot.Stats { return bot.Stats(s) }

func newTestRouter(stats bot.Stats) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(staticStats(stats), logger.NewNop())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(bot.Stats{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestStats(t *testing.T) {
	r := newTestRouter(bot.Stats{Chats: 3, Onboarding: 1, Main: 2, Sessions: 2, InFlight: 1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chats":3,"onboarding":1,"main":2,"sessions":2,"in_flight":1}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(bot.Stats{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
