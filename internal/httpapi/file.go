package httpapi

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog/log"

	"github.com/beni69/csengo/internal/storage"
)

// filesData is what files.html renders: the (possibly query-filtered)
// name list plus a human-readable total-storage line.
type filesData struct {
	Files      []string
	TotalCount int
	TotalSize  string
}

func (h *handlers) buildFilesData(names []string) filesData {
	data := filesData{Files: names}
	stats, err := h.store.FileStats()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read file stats")
		return data
	}
	data.TotalCount = stats.Count
	data.TotalSize = humanize.Bytes(uint64(stats.TotalSize))
	return data
}

func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListFiles()
	if err != nil {
		replyErr(w, r, "", "failed to list files", err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		names = fuzzy.Find(q, names)
	}

	render(w, "files.html", h.buildFilesData(names))
}

func (h *handlers) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "malformed multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing field `file`", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		replyErr(w, r, header.Filename, "failed to read upload", err)
		return
	}

	if err := h.store.InsertFile(storage.File{Name: header.Filename, Data: data}); err != nil {
		replyErr(w, r, header.Filename, "failed to save file", err)
		return
	}

	h.updatedFiles(w, r)
}

func (h *handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	existed, err := h.store.DeleteFile(name)
	if err != nil {
		replyErr(w, r, name, "failed to delete file", err)
		return
	}
	if !existed {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	h.updatedFiles(w, r)
}

// updatedFiles is sent back whenever the file set changes: the
// files.html fragment answers the request's own hx-target, and an
// out-of-band filepicker select keeps the task-creation form's file
// dropdown in sync without a full page reload.
func (h *handlers) updatedFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListFiles()
	if err != nil {
		replyErr(w, r, "", "failed to list files", err)
		return
	}

	render(w, "files.html", h.buildFilesData(names))

	io.WriteString(w, `<select id="file-picker" hx-swap-oob="true" name="file_name" form="task-form" required>`)
	tmpl.ExecuteTemplate(w, "filepicker_options.html", names)
	io.WriteString(w, `</select>`)
}

func (h *handlers) downloadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := h.store.GetFile(name)
	if err != nil {
		replyErr(w, r, name, "failed to read file", err)
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Write(f.Data)
}
