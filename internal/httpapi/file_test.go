package httpapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beni69/csengo/internal/storage"
)

func multipartUpload(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	h, store, _, _ := newTestHandlers()
	body, ct := multipartUpload(t, "file", "bell.mp3", []byte("sound data"))

	req := httptest.NewRequest(http.MethodPost, "/htmx/file", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.uploadFile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	f, ok := store.files["bell.mp3"]
	require.True(t, ok)
	assert.Equal(t, []byte("sound data"), f.Data)
}

func TestUploadFileMissingField(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/htmx/file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.uploadFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFileNotFound(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	req := httptest.NewRequest(http.MethodDelete, "/htmx/file/missing.mp3", nil)
	rec := httptest.NewRecorder()
	h.deleteFile(rec, withURLParam(req, "name", "missing.mp3"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteFileSuccess(t *testing.T) {
	h, store, _, _ := newTestHandlers()
	store.files["bell.mp3"] = storage.File{Name: "bell.mp3", Data: []byte("x")}
	req := httptest.NewRequest(http.MethodDelete, "/htmx/file/bell.mp3", nil)
	rec := httptest.NewRecorder()
	h.deleteFile(rec, withURLParam(req, "name", "bell.mp3"))
	assert.Equal(t, http.StatusOK, rec.Code)
	_, ok := store.files["bell.mp3"]
	assert.False(t, ok)
}

func TestListFilesFuzzyFilter(t *testing.T) {
	h, store, _, _ := newTestHandlers()
	store.files["morning-bell.mp3"] = storage.File{Name: "morning-bell.mp3"}
	store.files["alarm.mp3"] = storage.File{Name: "alarm.mp3"}

	req := httptest.NewRequest(http.MethodGet, "/htmx/file?q=morning", nil)
	rec := httptest.NewRecorder()
	h.listFiles(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "morning-bell.mp3")
	assert.NotContains(t, rec.Body.String(), "alarm.mp3")
}

func TestDownloadFile(t *testing.T) {
	h, store, _, _ := newTestHandlers()
	store.files["bell.mp3"] = storage.File{Name: "bell.mp3", Data: []byte("sound")}

	req := httptest.NewRequest(http.MethodGet, "/api/file/bell.mp3", nil)
	rec := httptest.NewRecorder()
	h.downloadFile(rec, withURLParam(req, "name", "bell.mp3"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sound", rec.Body.String())
}

func TestDownloadFileNotFound(t *testing.T) {
	h, _, _, _ := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/api/file/missing.mp3", nil)
	rec := httptest.NewRecorder()
	h.downloadFile(rec, withURLParam(req, "name", "missing.mp3"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildFilesDataHumanizesTotal(t *testing.T) {
	h, store, _, _ := newTestHandlers()
	store.files["a.mp3"] = storage.File{Name: "a.mp3", Data: make([]byte, 2048)}
	data := h.buildFilesData([]string{"a.mp3"})
	assert.Equal(t, 1, data.TotalCount)
	assert.Equal(t, "2.0 kB", data.TotalSize)
}
