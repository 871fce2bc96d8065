package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habita/internal/habits"
	"github.com/julianstephens/habita/internal/models"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, secret string) (*fiber.App, *habits.Manager) {
	t.Helper()
	m := habits.NewManager(habits.Config{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	return New(m, Config{JWTSecret: secret}), m
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func addHabit(t *testing.T, m *habits.Manager, name string, mutate func(*models.Habit)) models.Habit {
	t.Helper()
	h := models.NewHabit(name)
	if mutate != nil {
		mutate(&h)
	}
	created, err := m.Create(h)
	require.NoError(t, err)
	return created
}

func TestHealthRoute(t *testing.T) {
	app, _ := newTestApp(t, "secret")
	resp, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestAuthMiddleware(t *testing.T) {
	app, _ := newTestApp(t, "secret")

	resp, _ := do(t, app, http.MethodGet, "/api/habits", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/habits", "", "Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bad, err := IssueToken("other-secret", "cli", time.Hour)
	require.NoError(t, err)
	resp, _ = do(t, app, http.MethodGet, "/api/habits", "", "Authorization", "Bearer "+bad)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	expired, err := IssueToken("secret", "cli", -time.Minute)
	require.NoError(t, err)
	resp, _ = do(t, app, http.MethodGet, "/api/habits", "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	good, err := IssueToken("secret", "cli", time.Hour)
	require.NoError(t, err)
	resp, _ = do(t, app, http.MethodGet, "/api/habits", "", "Authorization", "Bearer "+good)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := IssueToken("", "cli", time.Hour)
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	token, err := IssueToken("secret", "cli", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.Subject)

	_, err = ValidateToken("secret", "not-a-token")
	assert.Error(t, err)
}

func TestCreateAndListHabits(t *testing.T) {
	app, m := newTestApp(t, "")

	resp, body := do(t, app, http.MethodPost, "/api/habits", `{"name":"Stretch","difficulty":"hard"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.Habit
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Stretch", created.Name)
	assert.Equal(t, models.DifficultyHard, created.Difficulty)
	assert.Equal(t, models.HabitTypePositive, created.Type)
	assert.Equal(t, 0, created.Position)

	resp, body = do(t, app, http.MethodGet, "/api/habits", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Habit
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, body = do(t, app, http.MethodGet, "/api/habits?page=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = do(t, app, http.MethodGet, "/api/habits?page=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Len(t, m.Habits(), 1)
}

func TestCreateHabitRejections(t *testing.T) {
	app, m := newTestApp(t, "")

	resp, _ := do(t, app, http.MethodPost, "/api/habits", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/habits", `{"name":"x","difficulty":"epic"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/habits", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for i := 0; i < 6; i++ {
		addHabit(t, m, "filler", nil)
	}
	resp, _ = do(t, app, http.MethodPost, "/api/habits", `{"name":"overflow"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateIgnoresClientHistory(t *testing.T) {
	app, _ := newTestApp(t, "")
	resp, body := do(t, app, http.MethodPost, "/api/habits",
		`{"name":"Cheat","totalPoints":999,"currentStreak":40,"completionRecords":[{"id":"r","date":"2026-10-01T00:00:00Z"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Habit
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Zero(t, created.TotalPoints)
	assert.Zero(t, created.CurrentStreak)
	assert.Empty(t, created.CompletionRecords)
}

func TestGetUpdateDeleteHabit(t *testing.T) {
	app, m := newTestApp(t, "")
	h := addHabit(t, m, "Read", nil)

	resp, _ := do(t, app, http.MethodGet, "/api/habits/"+h.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, app, http.MethodPut, "/api/habits/"+h.ID, `{"name":"Read more","id":"hijack"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got, ok := m.Habit(h.ID)
	require.True(t, ok)
	assert.Equal(t, "Read more", got.Name)
	_, ok = m.Habit("hijack")
	assert.False(t, ok)

	resp, _ = do(t, app, http.MethodPut, "/api/habits/"+h.ID, `{"type":"sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodDelete, "/api/habits/"+h.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, m.Habits())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		resp, _ = do(t, app, method, "/api/habits/"+h.ID, `{}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
	}
}

func TestToggleHabit(t *testing.T) {
	app, m := newTestApp(t, "")
	h := addHabit(t, m, "Walk", nil)

	resp, body := do(t, app, http.MethodPost, "/api/habits/"+h.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res habits.ToggleResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Completed)
	assert.Equal(t, 25, res.PointsDelta)
	assert.Equal(t, 1, res.CurrentStreak)

	resp, body = do(t, app, http.MethodPost, "/api/habits/"+h.ID+"/toggle", `{"date":"2026-10-14","mood":"calm"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.CurrentStreak)
	assert.Equal(t, 50, m.TotalPoints())

	resp, _ = do(t, app, http.MethodPost, "/api/habits/"+h.ID+"/toggle", `{"date":"14/10/2026"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/habits/missing/toggle", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompleteTimedHabit(t *testing.T) {
	app, m := newTestApp(t, "")
	timed := addHabit(t, m, "Meditate", func(h *models.Habit) {
		h.Type = models.HabitTypeTimed
		h.TimerDuration = 600
		h.Difficulty = models.DifficultyHard
	})
	plain := addHabit(t, m, "Floss", nil)

	resp, body := do(t, app, http.MethodPost, "/api/habits/"+timed.ID+"/timed", `{"duration":600}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res habits.ToggleResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 75, res.PointsDelta)

	resp, _ = do(t, app, http.MethodPost, "/api/habits/"+timed.ID+"/timed", `{"duration":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPost, "/api/habits/"+plain.ID+"/timed", `{"duration":60}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsAndCompatibility(t *testing.T) {
	app, m := newTestApp(t, "")
	a := addHabit(t, m, "A", nil)
	b := addHabit(t, m, "B", nil)
	m.ToggleCompletion(a.ID, fixedNow, "")
	m.ToggleCompletion(b.ID, fixedNow, "")

	resp, body := do(t, app, http.MethodGet, "/api/habits/"+a.ID+"/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var stats map[string]any
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, true, stats["completedToday"])
	assert.NotNil(t, stats["bestPartner"])

	resp, body = do(t, app, http.MethodGet, "/api/compatibility?a="+a.ID+"&b="+b.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var compat struct {
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(body, &compat))
	assert.Equal(t, m.Compatibility(a.ID, b.ID), compat.Score)

	resp, _ = do(t, app, http.MethodGet, "/api/compatibility?a="+a.ID, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, "/api/compatibility?a="+a.ID+"&b=nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLevelAndMotivation(t *testing.T) {
	app, m := newTestApp(t, "")
	m.Restore(nil, 150)

	resp, body := do(t, app, http.MethodGet, "/api/level", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lvl struct {
		Level        int `json:"level"`
		TotalPoints  int `json:"totalPoints"`
		PointsToNext int `json:"pointsToNext"`
	}
	require.NoError(t, json.Unmarshal(body, &lvl))
	assert.Equal(t, 2, lvl.Level)
	assert.Equal(t, 150, lvl.TotalPoints)
	assert.Equal(t, 150, lvl.PointsToNext)

	resp, body = do(t, app, http.MethodGet, "/api/motivation/7", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mot struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &mot))
	assert.Equal(t, m.MotivationMessage(7), mot.Message)

	resp, _ = do(t, app, http.MethodGet, "/api/motivation/seven", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
