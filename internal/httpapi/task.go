package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/metrics"
	"github.com/beni69/csengo/internal/task"
)

// taskView is the rendering-ready shape of a task.Task: every derived
// string the template needs already computed, so tasks.html stays a
// plain range-and-print.
type taskView struct {
	Name     string
	Kind     task.Kind
	FileName string
	Priority bool
	TimeStr  string
	Elapsed  string
}

// tasksData is what tasks.html renders, standalone or embedded in the
// index page.
type tasksData struct {
	Tasks []taskView
	Refr  int
}

func buildTasksData(tasks []task.Task) tasksData {
	now := time.Now()
	views := make([]taskView, len(tasks))
	var refr int
	for i, t := range tasks {
		elapsed, r := taskElapsed(t, now)
		views[i] = taskView{
			Name:     t.TaskName(),
			Kind:     t.Kind(),
			FileName: t.FileName(),
			Priority: t.Priority(),
			TimeStr:  taskTimefmt(t),
			Elapsed:  elapsed,
		}
		if r > 0 && (refr == 0 || r < refr) {
			refr = r
		}
	}
	return tasksData{Tasks: views, Refr: refr}
}

func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		replyErr(w, r, "", "failed to list tasks", err)
		return
	}
	render(w, "tasks.html", buildTasksData(tasks))
}

// parsePriority matches the original form's accepted spellings for
// the priority checkbox's on/off values.
func parsePriority(s string) (bool, bool) {
	switch s {
	case "true", "1", "on":
		return true, true
	case "false", "0", "off", "":
		return false, true
	default:
		return false, false
	}
}

func (h *handlers) createTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		replyErr(w, r, "", "malformed form", errs.InvalidInput(err.Error()))
		return
	}
	f := r.Form

	name := f.Get("name")
	priority, ok := parsePriority(f.Get("priority"))
	if !ok {
		replyErr(w, r, name, "create task", errs.InvalidInput("invalid value for `priority`"))
		return
	}
	fileName := f.Get("file_name")
	if fileName == "" {
		replyErr(w, r, name, "create task", errs.InvalidInput("missing value `file_name`"))
		return
	}

	typ := f.Get("type")
	if typ == "" {
		typ = "now"
	}

	var t task.Task
	switch typ {
	case "now":
		t = task.Now{Name: name, PriorityOn: priority, File: fileName}

	case "scheduled":
		if name == "" {
			replyErr(w, r, name, "create task", errs.InvalidInput("`name` can't be empty"))
			return
		}
		when, err := parseLocalDateTime(f.Get("time"))
		if err != nil {
			replyErr(w, r, name, "create task", errs.InvalidInput("missing or invalid value `time`"))
			return
		}
		if time.Until(when) < 0 {
			replyErr(w, r, name, "create task", errs.InvalidInput("date is in the past"))
			return
		}
		sched := task.Scheduled{Name: name, PriorityOn: priority, File: fileName, Time: when}
		if err := h.store.InsertTask(sched); err != nil {
			replyErr(w, r, name, "create task", err)
			return
		}
		t = sched

	case "recurring":
		if name == "" {
			replyErr(w, r, name, "create task", errs.InvalidInput("`name` can't be empty"))
			return
		}
		n, err := strconv.Atoi(f.Get("recurring-n"))
		if err != nil {
			replyErr(w, r, name, "create task", errs.InvalidInput("missing value `recurring-n`"))
			return
		}

		parsed := queryTimes(f)
		times := make([]time.Time, 0, len(parsed))
		for _, p := range parsed {
			if p == nil {
				replyErr(w, r, name, "create task", errs.InvalidInput("invalid values for `time-{n}`"))
				return
			}
			times = append(times, *p)
		}
		if len(times) != n {
			replyErr(w, r, name, "create task", errs.InvalidInput("invalid values for `time-{n}`: count mismatch"))
			return
		}
		task.SortTimes(times)

		rec := task.Recurring{Name: name, PriorityOn: priority, File: fileName, Times: times}
		if err := h.store.InsertTask(rec); err != nil {
			replyErr(w, r, name, "create task", err)
			return
		}
		t = rec

	default:
		replyErr(w, r, name, "create task", errs.InvalidInput("invalid value for `type`"))
		return
	}

	metrics.RecordTaskCreated(string(t.Kind()))

	if err := h.sched.Schedule(t); err != nil {
		log.Error().Str("task", t.TaskName()).Err(err).Msg("failed to schedule new task")
		replyErr(w, r, name, "create task", err)
		return
	}

	h.listTasks(w, r)
}

func (h *handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	existed, err := h.store.DeleteTask(name)
	if err != nil {
		replyErr(w, r, name, "failed to delete task", err)
		return
	}
	if !existed {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	h.player.Cancel(name)
	h.listTasks(w, r)
}
