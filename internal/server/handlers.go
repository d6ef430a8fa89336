package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mholler/imagetext/internal/extract"
	"github.com/mholler/imagetext/internal/imaging"
	"github.com/mholler/imagetext/internal/observability"
)

// supportedFormats lists the accepted upload extensions, lowercase and in
// the order they are reported by /info.
var supportedFormats = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "tif"}

// Handlers implements the API endpoints.
type Handlers struct {
	pipeline       *extract.Pipeline
	maxUploadBytes int64
	log            *observability.Logger
}

// NewHandlers creates the endpoint handlers around a pipeline.
func NewHandlers(pipeline *extract.Pipeline, maxUploadBytes int64, log *observability.Logger) *Handlers {
	if log == nil {
		log = observability.DefaultLogger()
	}
	return &Handlers{
		pipeline:       pipeline,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// extractMetadata summarizes a single extraction in API responses.
type extractMetadata struct {
	TextLength     int     `json:"text_length"`
	WordCount      int     `json:"word_count"`
	SentenceCount  int     `json:"sentence_count"`
	HasText        bool    `json:"has_text"`
	ProcessingTime float64 `json:"processing_time"`
}

// extractResponse is the reply for POST /extract.
type extractResponse struct {
	Success          bool            `json:"success"`
	FileID           string          `json:"file_id"`
	OriginalFilename string          `json:"original_filename"`
	ExtractedText    []string        `json:"extracted_text"`
	Metadata         extractMetadata `json:"metadata"`
	Timestamp        string          `json:"timestamp"`
}

// batchMetadata summarizes one file inside a batch response.
type batchMetadata struct {
	TextLength    int  `json:"text_length"`
	WordCount     int  `json:"word_count"`
	SentenceCount int  `json:"sentence_count"`
	HasText       bool `json:"has_text"`
}

// batchResult is one processed file inside a batch response.
type batchResult struct {
	FileID           string        `json:"file_id"`
	OriginalFilename string        `json:"original_filename"`
	ExtractedText    []string      `json:"extracted_text"`
	Metadata         batchMetadata `json:"metadata"`
}

// batchResponse is the reply for POST /extract/batch.
type batchResponse struct {
	Success    bool          `json:"success"`
	TotalFiles int           `json:"total_files"`
	Results    []batchResult `json:"results"`
	Timestamp  string        `json:"timestamp"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	})
}

// Info handles GET /info.
func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "Image Text Extraction API",
		"version":     Version,
		"description": "Extract text from images using multi-engine OCR",
		"capabilities": map[string]interface{}{
			"single_image":      true,
			"batch_processing":  true,
			"supported_formats": supportedFormats,
			"max_file_size":     fmt.Sprintf("%dMB", h.maxUploadBytes/(1024*1024)),
		},
		"endpoints": map[string]string{
			"POST /extract":       "Extract text from single image",
			"POST /extract/batch": "Extract text from multiple images",
			"GET /health":         "Health check",
			"GET /info":           "API information",
		},
	})
}

// Extract handles POST /extract. The image arrives as the multipart form
// field "file".
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if maxBytesExceeded(err) {
			h.writeTooLarge(w)
			return
		}
		h.writeError(w, http.StatusBadRequest, "No file provided", "Please provide an image file")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		h.writeError(w, http.StatusBadRequest, "No file selected", "Please select an image file")
		return
	}
	if !allowedFile(filename) {
		h.writeError(w, http.StatusBadRequest, "Invalid file type",
			"Allowed file types: "+strings.Join(supportedFormats, ", "))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if maxBytesExceeded(err) {
			h.writeTooLarge(w)
			return
		}
		h.writeError(w, http.StatusBadRequest, "Upload failed", err.Error())
		return
	}

	log.Debug().Str("filename", filename).Int64("bytes", header.Size).Msg("received upload")

	fileID := uuid.New().String()
	result, err := h.pipeline.Extract(r.Context(), storedName(fileID, filename), data)
	if err != nil {
		h.writeExtractionError(w, log, filename, err)
		return
	}

	h.writeJSON(w, http.StatusOK, extractResponse{
		Success:          true,
		FileID:           fileID,
		OriginalFilename: filename,
		ExtractedText:    textOrEmpty(result.Sentences),
		Metadata: extractMetadata{
			TextLength:     result.Metrics.TextLength,
			WordCount:      result.Metrics.WordCount,
			SentenceCount:  result.Metrics.SentenceCount,
			HasText:        result.Metrics.HasText,
			ProcessingTime: roundSeconds(result.Metrics.ProcessingTime),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ExtractBatch handles POST /extract/batch. Images arrive as repeated
// multipart form fields named "files"; entries that cannot be processed are
// skipped and logged rather than failing the whole batch.
func (h *Handlers) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if maxBytesExceeded(err) {
			h.writeTooLarge(w)
			return
		}
		h.writeError(w, http.StatusBadRequest, "No files provided", "Please provide image files")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "No files provided", "Please provide image files")
		return
	}

	results := make([]batchResult, 0, len(headers))
	for i, fh := range headers {
		fileLog := log.With().Str("filename", fh.Filename).Int("index", i).Logger()

		filename := filepath.Base(fh.Filename)
		if !allowedFile(filename) {
			fileLog.Warn().Msg("skipping file with unsupported type")
			continue
		}

		data, err := readUpload(fh)
		if err != nil {
			fileLog.Warn().Err(err).Msg("skipping unreadable file")
			continue
		}

		fileID := uuid.New().String()
		result, err := h.pipeline.Extract(r.Context(), storedName(fileID, filename), data)
		if err != nil {
			fileLog.Warn().Err(err).Msg("skipping failed extraction")
			continue
		}

		results = append(results, batchResult{
			FileID:           fileID,
			OriginalFilename: filename,
			ExtractedText:    textOrEmpty(result.Sentences),
			Metadata: batchMetadata{
				TextLength:    result.Metrics.TextLength,
				WordCount:     result.Metrics.WordCount,
				SentenceCount: result.Metrics.SentenceCount,
				HasText:       result.Metrics.HasText,
			},
		})
	}

	h.writeJSON(w, http.StatusOK, batchResponse{
		Success:    true,
		TotalFiles: len(results),
		Results:    results,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

// NotFound replies to unknown routes with the API's JSON error shape.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "Endpoint not found",
		"Check API documentation for available endpoints")
}

// MethodNotAllowed replies to known routes hit with the wrong verb.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed",
		"Check API documentation for supported methods")
}

// writeExtractionError maps pipeline failures onto API status codes:
// undecodable input is the client's fault, everything else is ours.
func (h *Handlers) writeExtractionError(w http.ResponseWriter, log *observability.Logger, filename string, err error) {
	if errors.Is(err, imaging.ErrDecode) {
		h.writeError(w, http.StatusBadRequest, "Invalid image data", err.Error())
		return
	}

	log.Error().Err(err).Str("filename", filename).Msg("extraction failed")
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     "Processing failed",
		Message:   err.Error(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) writeTooLarge(w http.ResponseWriter) {
	h.writeError(w, http.StatusRequestEntityTooLarge, "File too large",
		fmt.Sprintf("Maximum file size is %dMB", h.maxUploadBytes/(1024*1024)))
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	h.writeJSON(w, status, errorResponse{Error: errMsg, Message: detail})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

// Helper functions

// allowedFile checks the upload extension against the supported formats.
func allowedFile(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// storedName builds the unique internal name an upload is processed under,
// which also determines its report name.
func storedName(fileID, filename string) string {
	return fileID + strings.ToLower(filepath.Ext(filename))
}

// readUpload drains one multipart file header.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// textOrEmpty keeps extracted_text a JSON array even when nothing was found.
func textOrEmpty(sentences []string) []string {
	if sentences == nil {
		return []string{}
	}
	return sentences
}

// maxBytesExceeded reports whether an upload error came from the request
// body cap.
func maxBytesExceeded(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// roundSeconds converts a duration to seconds with two decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
