package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/expense"
	"github.com/pigfarm/receipt-capture/internal/extraction"
)

const maxUploadSize = int64(50 << 20)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeDetail writes an error body of the form {"detail": message}
func writeDetail(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"detail": message})
}

// uploadContentType prefers the part's declared type and falls back to the extension
func uploadContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleOCR extracts expense fields from an uploaded image
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile(extraction.ImageField)
	if err != nil {
		slog.Error("Error getting image from form", "error", err)
		writeDetail(w, http.StatusBadRequest, "No image was provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading image data", "error", err, "filename", header.Filename)
		writeDetail(w, http.StatusInternalServerError, "Error reading image. Please try again.")
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	start := time.Now()
	result, err := s.service.ScanImage(r.Context(), header.Filename, data, contentType)
	s.metrics.extractDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.extractions.WithLabelValues("failed").Inc()
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error processing image: %s", apperror.Message(err)))
		return
	}
	s.metrics.extractions.WithLabelValues("succeeded").Inc()

	writeJSON(w, http.StatusOK, result)
}

// handleCreateExpense stores an expense and echoes it back
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var record expense.Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.service.CreateExpense(record)
	if err != nil {
		if apperror.IsKind(err, apperror.KindValidation) {
			writeDetail(w, http.StatusUnprocessableEntity, apperror.Message(err))
			return
		}
		slog.Error("Error creating expense", "error", err)
		writeDetail(w, http.StatusBadRequest, "Failed to create expense")
		return
	}
	s.metrics.expensesCreated.Inc()

	writeJSON(w, http.StatusCreated, created)
}

// handleListExpenses returns all expenses
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if expenses == nil {
		expenses = []*expense.Expense{}
	}

	writeJSON(w, http.StatusOK, expenses)
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.Error("Error getting expense", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// handleDeleteExpense deletes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.Error("Error deleting expense", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Error deleting expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
