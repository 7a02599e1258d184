package httpapi

import "net/http"

type indexData struct {
	Status statusData
	Tasks  tasksData
	Files  filesData
	Form   formData
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		replyErr(w, r, "", "failed to list tasks", err)
		return
	}
	files, err := h.store.ListFiles()
	if err != nil {
		replyErr(w, r, "", "failed to list files", err)
		return
	}

	render(w, "index.html", indexData{
		Status: statusData{Name: h.player.NowPlaying().Name},
		Tasks:  buildTasksData(tasks),
		Files:  h.buildFilesData(files),
		Form:   formData{Files: files, Time: defaultPickerTime()},
	})
}
