package httpapi

import "net/http"

// formData is what form.html renders: the file picker's options and
// the currently selected date/time widget state.
type formData struct {
	Files []string
	Time  pickerTime
}

func (h *handlers) taskForm(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.ListFiles()
	if err != nil {
		replyErr(w, r, "", "failed to list files", err)
		return
	}
	render(w, "form.html", formData{Files: files, Time: defaultPickerTime()})
}

func (h *handlers) datepicker(w http.ResponseWriter, r *http.Request) {
	pt, ok := parsePickerTime(r.URL.Query())
	if !ok {
		http.Error(w, "invalid value for `type`", http.StatusBadRequest)
		return
	}
	render(w, "datepicker.html", pt)
}
