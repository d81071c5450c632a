package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chapterops/palms-server/internal/config"
	"github.com/chapterops/palms-server/internal/lottery"
	"github.com/chapterops/palms-server/internal/rating"
	"github.com/chapterops/palms-server/internal/report"
	"github.com/chapterops/palms-server/internal/scoring"
)

type testEnv struct {
	server  *Server
	ratings *rating.Table
	lotto   *lottery.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()

	ratings := rating.NewTable(nil, nil)
	lotto := lottery.NewEngine(true, nil)
	reports := report.NewService(cfg.MaxFileSize, cfg.DefaultChapter, cfg.WindowWeeks,
		ratings, lotto, nil, nil)

	return &testEnv{
		server:  NewServer(cfg, reports, ratings, lotto, zap.NewNop()),
		ratings: ratings,
		lotto:   lotto,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.server.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "palms-server", resp["name"])
}

func TestReports_NotFoundStates(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/reports/current", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/reports/current/summary", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/reports/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/api/v1/reports/nope/current", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/reports/nope", "").Code)
}

func TestUploadReport_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/reports", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errResponse
	decode(t, w, &resp)
	assert.Contains(t, resp.Error, "missing 'file' form field")
}

func TestListRatings(t *testing.T) {
	env := newTestEnv(t)
	env.ratings.Upsert("甲", scoring.RawData{OneToOnePerWeek: 2.1, TrainingCredits: 6,
		ReferralsPerWeek: 1.6, GuestsPer4Weeks: 2, ReferralAmountTotal: 2000001})
	env.ratings.Upsert("乙", scoring.RawData{})

	w := env.do(t, http.MethodGet, "/api/v1/ratings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []rating.Record
	decode(t, w, &all)
	assert.Len(t, all, 2)

	w = env.do(t, http.MethodGet, "/api/v1/ratings?status=green", "")
	require.Equal(t, http.StatusOK, w.Code)
	var greens []rating.Record
	decode(t, w, &greens)
	require.Len(t, greens, 1)
	assert.Equal(t, "甲", greens[0].MemberName)

	w = env.do(t, http.MethodGet, "/api/v1/ratings?status=blue", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrainingCredits(t *testing.T) {
	env := newTestEnv(t)
	env.ratings.Upsert("甲", scoring.RawData{})

	w := env.do(t, http.MethodPut, "/api/v1/ratings/甲/training-credits", `{"credits": 6}`)
	require.Equal(t, http.StatusOK, w.Code)
	var rec rating.Record
	decode(t, w, &rec)
	assert.Equal(t, 6, rec.RawData.TrainingCredits)
	assert.Equal(t, 35, rec.Scores.Total)

	w = env.do(t, http.MethodPut, "/api/v1/ratings/不存在/training-credits", `{"credits": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/ratings/甲/training-credits", `{"credits": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualOverride(t *testing.T) {
	env := newTestEnv(t)
	env.ratings.Upsert("甲", scoring.RawData{})

	w := env.do(t, http.MethodPut, "/api/v1/ratings/甲/override", `{"status": "green"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var rec rating.Record
	decode(t, w, &rec)
	assert.Equal(t, scoring.StatusGreen, rec.Status)
	assert.True(t, rec.IsManualOverride)

	w = env.do(t, http.MethodPut, "/api/v1/ratings/甲/override", `{"status": "blue"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/ratings/甲/override", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rec)
	assert.False(t, rec.IsManualOverride)

	w = env.do(t, http.MethodPut, "/api/v1/ratings/不存在/override", `{"status": "green"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLottery_Endpoints(t *testing.T) {
	env := newTestEnv(t)
	env.lotto.SetCandidates([]lottery.Candidate{{Name: "甲", Chances: 2}})

	w := env.do(t, http.MethodGet, "/api/v1/lottery/candidates", "")
	require.Equal(t, http.StatusOK, w.Code)
	var candidates []lottery.Candidate
	decode(t, w, &candidates)
	require.Len(t, candidates, 1)
	assert.Equal(t, "甲", candidates[0].Name)

	w = env.do(t, http.MethodPost, "/api/v1/lottery/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var session map[string]string
	decode(t, w, &session)
	assert.NotEmpty(t, session["session_id"])

	w = env.do(t, http.MethodPost, "/api/v1/lottery/draws", `{"count": 1}`)
	require.Equal(t, http.StatusOK, w.Code)
	var draw struct {
		Winners []string `json:"winners"`
	}
	decode(t, w, &draw)
	assert.Equal(t, []string{"甲"}, draw.Winners)

	// Pool exhausted under the exclusion policy; still a 200 with an
	// empty winners list.
	w = env.do(t, http.MethodPost, "/api/v1/lottery/draws", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &draw)
	assert.Empty(t, draw.Winners)

	w = env.do(t, http.MethodPost, "/api/v1/lottery/draws", `{"count": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/lottery/session-records", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []lottery.Record
	decode(t, w, &recs)
	assert.Len(t, recs, 1)

	w = env.do(t, http.MethodPut, "/api/v1/lottery/policy", `{"exclude_winners": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.lotto.ExcludeWinners())

	w = env.do(t, http.MethodPut, "/api/v1/lottery/policy", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/lottery/records", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.lotto.Records())
}

func TestClearAllData(t *testing.T) {
	env := newTestEnv(t)
	env.ratings.Upsert("甲", scoring.RawData{})

	w := env.do(t, http.MethodDelete, "/api/v1/admin/data", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.ratings.Snapshot())
}
