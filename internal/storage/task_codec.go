package storage

import (
	"fmt"
	"time"

	"github.com/beni69/csengo/internal/task"
)

// taskRow is the raw, column-shaped encoding of a task.Task as
// persisted in the tasks table.
type taskRow struct {
	typ      string
	name     string
	priority bool
	fileName string
	time     *string
}

// timeLayout is the persisted encoding for Scheduled.Time: RFC3339
// with seconds precision and a trailing Z, per the HTTP boundary's
// JSON export format.
const timeLayout = "2006-01-02T15:04:05Z"

func encodeTask(t task.Task) (taskRow, error) {
	r := taskRow{
		typ:      string(t.Kind()),
		name:     t.TaskName(),
		priority: t.Priority(),
		fileName: t.FileName(),
	}

	switch v := t.(type) {
	case task.Scheduled:
		s := v.Time.UTC().Format(timeLayout)
		r.time = &s
	case task.Recurring:
		if len(v.Times) == 0 {
			return taskRow{}, fmt.Errorf("recurring task %q has no times", v.Name)
		}
		s := task.EncodeTimes(v.Times)
		r.time = &s
	default:
		return taskRow{}, fmt.Errorf("unsupported task kind %q", t.Kind())
	}

	return r, nil
}

func decodeTask(r taskRow) (task.Task, error) {
	switch task.Kind(r.typ) {
	case task.KindScheduled:
		if r.time == nil {
			return nil, fmt.Errorf("scheduled task %q missing time", r.name)
		}
		ts, err := time.Parse(timeLayout, *r.time)
		if err != nil {
			return nil, fmt.Errorf("parse scheduled time for %q: %w", r.name, err)
		}
		return task.Scheduled{
			Name:       r.name,
			PriorityOn: r.priority,
			File:       r.fileName,
			Time:       ts,
		}, nil
	case task.KindRecurring:
		if r.time == nil {
			return nil, fmt.Errorf("recurring task %q missing times", r.name)
		}
		times, err := task.DecodeTimes(*r.time)
		if err != nil {
			return nil, fmt.Errorf("parse recurring times for %q: %w", r.name, err)
		}
		return task.Recurring{
			Name:       r.name,
			PriorityOn: r.priority,
			File:       r.fileName,
			Times:      times,
		}, nil
	default:
		return nil, fmt.Errorf("unknown task type %q for %q", r.typ, r.name)
	}
}
