package httpapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beni69/csengo/internal/task"
)

func newTestHandlers() (*handlers, *fakeStore, *fakePlayer, *fakeScheduler) {
	store := newFakeStore()
	player := &fakePlayer{}
	sched := &fakeScheduler{}
	return &handlers{store: store, player: player, sched: sched}, store, player, sched
}

func postForm(h *handlers, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/htmx/task", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.createTask(rec, req)
	return rec
}

func TestCreateTaskNow(t *testing.T) {
	h, _, _, sched := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":      {"now"},
		"file_name": {"bell.mp3"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sched.scheduled, 1)
	assert.Equal(t, task.KindNow, sched.scheduled[0].Kind())
}

func TestCreateTaskMissingFileName(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{"type": {"now"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskInvalidPriority(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":      {"now"},
		"file_name": {"bell.mp3"},
		"priority":  {"maybe"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskScheduledRequiresName(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":      {"scheduled"},
		"file_name": {"bell.mp3"},
		"time":      {formatLocalDateTime(time.Now().Add(time.Hour))},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskScheduledRejectsPastTime(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":      {"scheduled"},
		"name":      {"morning bell"},
		"file_name": {"bell.mp3"},
		"time":      {formatLocalDateTime(time.Now().Add(-time.Hour))},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskScheduledSuccess(t *testing.T) {
	h, store, _, sched := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":      {"scheduled"},
		"name":      {"morning bell"},
		"file_name": {"bell.mp3"},
		"time":      {formatLocalDateTime(time.Now().Add(time.Hour))},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sched.scheduled, 1)
	_, ok := store.tasks["morning bell"]
	assert.True(t, ok)
}

func TestCreateTaskRecurringCountMismatch(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{
		"type":        {"recurring"},
		"name":        {"hourly bell"},
		"file_name":   {"bell.mp3"},
		"recurring-n": {"2"},
		"time-0":      {formatLocalDateTime(time.Now())},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskRecurringSuccessSortsTimes(t *testing.T) {
	h, store, _, sched := newTestHandlers()
	later := formatLocalDateTime(time.Date(2026, 1, 1, 18, 0, 0, 0, time.Local))
	earlier := formatLocalDateTime(time.Date(2026, 1, 1, 6, 0, 0, 0, time.Local))
	rec := postForm(h, url.Values{
		"type":        {"recurring"},
		"name":        {"twice daily"},
		"file_name":   {"bell.mp3"},
		"recurring-n": {"2"},
		"time-0":      {later},
		"time-1":      {earlier},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sched.scheduled, 1)
	rec2, ok := store.tasks["twice daily"].(task.Recurring)
	require.True(t, ok)
	require.Len(t, rec2.Times, 2)
	assert.True(t, rec2.Times[0].Before(rec2.Times[1]))
}

func TestCreateTaskInvalidType(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	rec := postForm(h, url.Values{"type": {"bogus"}, "file_name": {"bell.mp3"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTaskNotFound(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	req := httptest.NewRequest(http.MethodDelete, "/htmx/task/missing", nil)
	rec := httptest.NewRecorder()
	h.deleteTask(rec, withURLParam(req, "name", "missing"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTaskCancelsScheduledPlay(t *testing.T) {
	h, store, player, _ := newTestHandlers()
	store.tasks["bell"] = task.Now{Name: "bell", File: "bell.mp3"}
	req := httptest.NewRequest(http.MethodDelete, "/htmx/task/bell", nil)
	rec := httptest.NewRecorder()
	h.deleteTask(rec, withURLParam(req, "name", "bell"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, player.cancelled, "bell")
}

func TestParsePriorityTable(t *testing.T) {
	for _, c := range []struct {
		in      string
		want    bool
		wantOk  bool
		comment string
	}{
		{"", false, true, "empty defaults off"},
		{"on", true, true, "html checkbox"},
		{"true", true, true, "json true"},
		{"1", true, true, "numeric true"},
		{"off", false, true, "explicit off"},
		{"garbage", false, false, "rejected"},
	} {
		got, ok := parsePriority(c.in)
		assert.Equal(t, c.wantOk, ok, c.comment)
		if ok {
			assert.Equal(t, c.want, got, c.comment)
		}
	}
}
