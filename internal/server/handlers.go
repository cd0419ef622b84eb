package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"converteasy/internal/fileutil"
	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/task"
)

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".html": "text/html",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".zip":  "application/zip",
}

type uploadResponse struct {
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

type taskStatusResponse struct {
	State       task.State `json:"state"`
	URL         string     `json:"url,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	PreviewURL  string     `json:"previewUrl,omitempty"`
	Message     string     `json:"message,omitempty"`
}

type detectTargetsResponse struct {
	Filename         string        `json:"filename"`
	Category         task.Category `json:"category"`
	SourceExtension  string        `json:"sourceExtension"`
	SupportedTargets []string      `json:"supportedTargets"`
	CanConvert       bool          `json:"canConvert"`
}

type categoryFormats struct {
	AllowedExtensions    []string            `json:"allowedExtensions"`
	SupportedConversions map[string][]string `json:"supportedConversions"`
}

// handleUpload ingests a conversion request: a direct multipart upload or a
// remote fetch by URL. Every input-taxonomy rejection happens before a task
// record exists, so the store only ever sees admissible work.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSizeBytes()+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	target := registry.NormalizeFormat(r.FormValue("target"))
	declaredSource := registry.NormalizeFormat(r.FormValue("source"))
	categoryValue := r.FormValue("category")

	inputPath, originalStem, err := s.receiveInput(r)
	if err != nil {
		s.writeError(w, statusForIngestError(err), err.Error())
		return
	}

	reject := func(status int, message string, headers map[string]string) {
		_ = fileutil.RemoveIfExists(inputPath)
		for key, value := range headers {
			w.Header().Set(key, value)
		}
		s.writeError(w, status, message)
	}

	category, ok := task.ParseCategory(categoryValue)
	if !ok {
		reject(http.StatusBadRequest, "unsupported category", nil)
		return
	}

	actualExt := fileutil.DetectExt(inputPath)
	actualSource := registry.NormalizeFormat(actualExt)

	if declaredSource != "" && declaredSource != actualSource {
		reject(http.StatusBadRequest,
			fmt.Sprintf("format mismatch: declared %s but received a %s file",
				strings.ToUpper(declaredSource), strings.ToUpper(actualSource)), nil)
		return
	}
	if !s.registry.IsAllowedExtension(category, actualSource) {
		reject(http.StatusBadRequest, "file type not allowed", nil)
		return
	}
	if _, ok := s.registry.Lookup(category, actualSource, target); !ok {
		supported := s.registry.SupportedTargets(category, actualSource)
		reject(http.StatusBadRequest,
			fmt.Sprintf("conversion from %s to %s is not supported", actualSource, target),
			map[string]string{"X-Supported-Targets": strings.Join(supported, ",")})
		return
	}

	now := time.Now().UTC()
	t := &task.Task{
		ID:               uuid.NewString(),
		State:            task.StateQueued,
		Category:         category,
		SourceFormat:     actualSource,
		TargetFormat:     target,
		InputPath:        inputPath,
		OriginalFilename: originalStem + actualExt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.Create(r.Context(), t); err != nil {
		reject(http.StatusInternalServerError, "failed to persist task", nil)
		return
	}
	if err := s.dispatcher.Submit(t); err != nil {
		_ = s.store.Delete(r.Context(), t.ID)
		reject(http.StatusServiceUnavailable, "conversion queue is full, try again later", nil)
		return
	}

	s.logger.Info("task submitted",
		logging.String(logging.FieldTaskID, t.ID),
		logging.String(logging.FieldCategory, string(category)),
		logging.String("source", actualSource),
		logging.String("target", target),
	)
	s.writeJSON(w, http.StatusOK, uploadResponse{TaskID: t.ID, Message: "task submitted"})
}

type ingestError struct {
	status  int
	message string
}

func (e *ingestError) Error() string { return e.message }

func statusForIngestError(err error) int {
	if ie, ok := err.(*ingestError); ok {
		return ie.status
	}
	return http.StatusInternalServerError
}

// receiveInput stores the request's payload in the upload directory and
// returns its path plus the original filename stem.
func (s *Server) receiveInput(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()

		ext := fileutil.DetectExt(header.Filename)
		inputPath := filepath.Join(s.cfg.Paths.UploadDir, uuid.NewString()+ext)
		if err := writeStream(inputPath, file); err != nil {
			return "", "", &ingestError{http.StatusInternalServerError, "failed to store upload"}
		}
		stem := strings.TrimSuffix(filepath.Base(header.Filename), ext)
		return inputPath, stem, nil
	}
	if err != http.ErrMissingFile {
		return "", "", &ingestError{http.StatusBadRequest, "invalid file field"}
	}

	downloadURL := strings.TrimSpace(r.FormValue("downloadUrl"))
	if downloadURL == "" {
		return "", "", &ingestError{http.StatusBadRequest, "missing file"}
	}
	return s.fetchRemote(r, downloadURL)
}

// fetchRemote downloads the input from a caller-provided URL. The original
// filename comes from the optional cloudPath field because download URLs are
// typically opaque signed blobs.
func (s *Server) fetchRemote(r *http.Request, downloadURL string) (string, string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", &ingestError{http.StatusBadRequest, "invalid download url"}
	}

	ext := fileutil.DetectExt(parsed.Path)
	id := uuid.NewString()
	inputPath := filepath.Join(s.cfg.Paths.UploadDir, id+ext)

	stem := id
	if cloudPath := strings.TrimSpace(r.FormValue("cloudPath")); cloudPath != "" {
		base := filepath.Base(cloudPath)
		stem = strings.TrimSuffix(base, fileutil.DetectExt(base))
	}

	client := &http.Client{Timeout: s.cfg.RemoteFetchTimeout()}
	resp, err := client.Get(downloadURL)
	if err != nil {
		return "", "", &ingestError{http.StatusBadGateway, "failed to download remote file"}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", "", &ingestError{http.StatusBadGateway,
			fmt.Sprintf("remote file fetch returned status %d", resp.StatusCode)}
	}

	limited := io.LimitReader(resp.Body, s.cfg.MaxFileSizeBytes()+1)
	if err := writeStream(inputPath, limited); err != nil {
		return "", "", &ingestError{http.StatusInternalServerError, "failed to store remote file"}
	}
	if info, err := os.Stat(inputPath); err == nil && info.Size() > s.cfg.MaxFileSizeBytes() {
		_ = os.Remove(inputPath)
		return "", "", &ingestError{http.StatusBadRequest, "remote file exceeds the size limit"}
	}
	return inputPath, stem, nil
}

func writeStream(path string, src io.Reader) error {
	dest, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		_ = os.Remove(path)
		return err
	}
	return dest.Close()
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/convert/task/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	t, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if t == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	s.writeJSON(w, http.StatusOK, taskStatusResponse{
		State:       t.State,
		URL:         t.PublicURL,
		DownloadURL: t.DownloadURL,
		PreviewURL:  t.PreviewURL,
		Message:     t.ErrorMessage,
	})
}

func (s *Server) handleSupportedFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter := strings.TrimSpace(r.URL.Query().Get("category"))
	if filter != "" {
		if _, ok := task.ParseCategory(filter); !ok {
			s.writeError(w, http.StatusBadRequest, "unsupported category")
			return
		}
	}

	response := make(map[string]categoryFormats)
	for _, category := range task.AllCategories() {
		if filter != "" && filter != string(category) {
			continue
		}
		response[string(category)] = categoryFormats{
			AllowedExtensions:    s.registry.AllowedExtensions(category),
			SupportedConversions: s.registry.Conversions(category),
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleDetectTargets answers what a given filename can convert to. Only the
// name matters; the payload is never read.
func (s *Server) handleDetectTargets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	category, ok := task.ParseCategory(r.FormValue("category"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported category")
		return
	}

	filename := ""
	if file, header, err := r.FormFile("file"); err == nil {
		file.Close()
		filename = header.Filename
	} else if value := r.FormValue("filename"); value != "" {
		filename = value
	}

	source := registry.NormalizeFormat(fileutil.DetectExt(filename))
	targets := s.registry.SupportedTargets(category, source)
	s.writeJSON(w, http.StatusOK, detectTargetsResponse{
		Filename:         filename,
		Category:         category,
		SourceExtension:  source,
		SupportedTargets: targets,
		CanConvert:       len(targets) > 0,
	})
}

// publicFile resolves a delivery request against the public directory,
// rejecting anything that escapes it.
func (s *Server) publicFile(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	path := filepath.Join(s.cfg.Paths.PublicDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/download/")
	path, ok := s.publicFile(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/preview/")
	path, ok := s.publicFile(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "file not found")
		return
	}

	contentType := mimeTypes[strings.ToLower(filepath.Ext(name))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "converteasy",
		"version":   Version,
	})
}

func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server": map[string]string{
			"bind":          s.cfg.Paths.APIBind,
			"publicBaseUrl": s.cfg.Server.PublicBaseURL,
		},
		"tasks": stats,
		"files": map[string]int{
			"uploads": countFiles(s.cfg.Paths.UploadDir),
			"public":  countFiles(s.cfg.Paths.PublicDir),
		},
		"dependencies": s.depsSnapshot(),
	})
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary := s.sweeper.RunOnce(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "cleanup finished",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"summary":   summary,
	})
}

// handleTasks lists every live task record, newest first, for the CLI.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tasks, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}
