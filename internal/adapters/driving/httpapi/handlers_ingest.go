package httpapi

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

type reportPayload struct {
	Documents int                `json:"documents"`
	Indexed   int                `json:"indexed"`
	Methods   map[string]string  `json:"methods,omitempty"`
	Rejected  []rejectionPayload `json:"rejected,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type rejectionPayload struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func rejections(in []driving.Rejection) []rejectionPayload {
	out := make([]rejectionPayload, 0, len(in))
	for _, r := range in {
		out = append(out, rejectionPayload{Name: r.Name, Reason: r.Reason})
	}
	return out
}

// handleUpload stores the multipart "files" in the chat and indexes them.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	files, cleanup, ok := s.readFiles(w, r)
	if !ok {
		return
	}
	defer cleanup()

	m, unlock := s.sessions(r)
	defer unlock()

	if _, err := open(r, m); err != nil {
		writeError(w, err)
		return
	}
	_, rejected, err := m.Upload(r.Context(), files)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := m.Process(r.Context())
	out := reportOf(report)
	out.Rejected = append(rejections(rejected), out.Rejected...)
	if err != nil {
		out.Error = domain.Reason(err)
		writeJSON(w, statusFor(err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleIngest adds the multipart "files" to the caller's shared knowledge base.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.TenantKey().IsShared() {
		jsonError(w, "ingestion requires an organization admin", http.StatusForbidden)
		return
	}

	files, cleanup, ok := s.readFiles(w, r)
	if !ok {
		return
	}
	defer cleanup()

	report, err := s.ports.Collections.Add(r.Context(), id, files)
	if report == nil && err != nil {
		writeError(w, err)
		return
	}
	out := reportOf(report)
	if err != nil {
		out.Error = domain.Reason(err)
		writeJSON(w, statusFor(err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// readFiles parses the multipart form. On failure it writes the response
// and returns false.
func (s *Server) readFiles(w http.ResponseWriter, r *http.Request) ([]domain.UploadFile, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		r.MultipartForm.RemoveAll()
		jsonError(w, "files are required", http.StatusBadRequest)
		return nil, nil, false
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
		r.MultipartForm.RemoveAll()
	}
	files := make([]domain.UploadFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			cleanup()
			jsonError(w, "reading "+h.Filename+": "+err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
		opened = append(opened, f)
		files = append(files, domain.UploadFile{Name: sanitizeFilename(h.Filename), Size: h.Size, Content: f})
	}
	return files, cleanup, true
}

func reportOf(report *driving.IngestReport) reportPayload {
	var out reportPayload
	if report == nil {
		return out
	}
	out.Documents = report.Documents
	out.Indexed = report.Indexed
	if len(report.Rejected) > 0 {
		out.Rejected = rejections(report.Rejected)
	}
	if len(report.Methods) > 0 {
		out.Methods = make(map[string]string, len(report.Methods))
		for name, m := range report.Methods {
			out.Methods[name] = string(m)
		}
	}
	return out
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return "upload"
	}
	return name
}
