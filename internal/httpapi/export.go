package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/errs"
	"github.com/beni69/csengo/internal/task"
)

// TaskJSON is the wire shape of a task.Task for /api/export and
// /api/import: absolute instants as RFC3339, times-of-day as "HH:MM".
type TaskJSON struct {
	Type     task.Kind `json:"type"`
	Name     string    `json:"name"`
	Priority bool      `json:"priority"`
	FileName string    `json:"file_name"`
	Time     *string   `json:"time,omitempty"`
	Times    []string  `json:"times,omitempty"`
}

func TaskToJSON(t task.Task) TaskJSON {
	j := TaskJSON{
		Type:     t.Kind(),
		Name:     t.TaskName(),
		Priority: t.Priority(),
		FileName: t.FileName(),
	}
	switch v := t.(type) {
	case task.Scheduled:
		s := v.Time.UTC().Format(time.RFC3339)
		j.Time = &s
	case task.Recurring:
		j.Times = make([]string, len(v.Times))
		for i, t := range v.Times {
			j.Times[i] = t.Format("15:04")
		}
	}
	return j
}

func JSONToTask(j TaskJSON) (task.Task, error) {
	switch j.Type {
	case task.KindNow:
		return task.Now{Name: j.Name, PriorityOn: j.Priority, File: j.FileName}, nil
	case task.KindScheduled:
		if j.Time == nil {
			return nil, fmt.Errorf("scheduled task %q missing `time`", j.Name)
		}
		when, err := time.Parse(time.RFC3339, *j.Time)
		if err != nil {
			return nil, fmt.Errorf("scheduled task %q: parse time: %w", j.Name, err)
		}
		return task.Scheduled{Name: j.Name, PriorityOn: j.Priority, File: j.FileName, Time: when}, nil
	case task.KindRecurring:
		if len(j.Times) == 0 {
			return nil, fmt.Errorf("recurring task %q missing `times`", j.Name)
		}
		times := make([]time.Time, len(j.Times))
		for i, s := range j.Times {
			t, err := time.Parse("15:04", s)
			if err != nil {
				return nil, fmt.Errorf("recurring task %q: parse time-of-day %q: %w", j.Name, s, err)
			}
			times[i] = t
		}
		return task.Recurring{Name: j.Name, PriorityOn: j.Priority, File: j.FileName, Times: times}, nil
	default:
		return nil, fmt.Errorf("unknown task type %q for %q", j.Type, j.Name)
	}
}

func (h *handlers) apiExport(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		replyErr(w, r, "", "failed to list tasks", err)
		return
	}

	out := make([]TaskJSON, len(tasks))
	for i, t := range tasks {
		out[i] = TaskToJSON(t)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("failed to encode task export")
	}
}

func (h *handlers) apiImport(w http.ResponseWriter, r *http.Request) {
	var in []TaskJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}

	var inserted, skipped, failed int
	for _, j := range in {
		t, err := JSONToTask(j)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed task in import")
			failed++
			continue
		}

		if t.Kind() != task.KindNow {
			if err := h.store.InsertTask(t); err != nil {
				if e, ok := errs.As(err); ok && e.Kind == errs.KindNameConflict {
					skipped++
					continue
				}
				log.Error().Str("task", t.TaskName()).Err(err).Msg("failed to insert imported task")
				failed++
				continue
			}
		}

		if err := h.sched.Schedule(t); err != nil {
			log.Error().Str("task", t.TaskName()).Err(err).Msg("failed to schedule imported task")
			failed++
			continue
		}
		inserted++
	}

	fmt.Fprintf(w, "imported %d, skipped %d (already present), failed %d\n", inserted, skipped, failed)
}
