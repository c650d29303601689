package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/expense"
	"github.com/pigfarm/receipt-capture/internal/extraction"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

// IDGenerator generates unique IDs for expenses and uploads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles extraction and expense operations
type Service struct {
	db          DB
	extractor   extraction.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, extractor extraction.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor extraction.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ScanImage stores an upload, extracts its fields and cleans the result.
// The upload is removed again when extraction fails.
func (s *Service) ScanImage(ctx context.Context, filename string, data []byte, contentType string) (extraction.Result, error) {
	id := s.idGenerator.Generate()
	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.extractor.Extract(ctx, &imaging.Asset{
		Filename: cleanFilename,
		MimeType: contentType,
		Data:     data,
	})
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if derr := s.storage.Delete(savedPath); derr != nil {
			slog.Warn("Failed to delete upload", "path", savedPath, "error", derr)
		}
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}

	return extraction.Clean(result, s.timeSource.Now()), nil
}

// CreateExpense validates and stores a record
func (s *Service) CreateExpense(record expense.Record) (*expense.Expense, error) {
	var missing []string
	if strings.TrimSpace(record.ExpenseType) == "" {
		missing = append(missing, "expenseType")
	}
	if strings.TrimSpace(record.ExpenseDate) == "" {
		missing = append(missing, "expenseDate")
	}
	if strings.TrimSpace(record.ExpenseName) == "" {
		missing = append(missing, "expenseName")
	}
	if len(missing) > 0 {
		return nil, apperror.Validation(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if math.IsNaN(record.ExpenseTotal) || math.IsInf(record.ExpenseTotal, 0) {
		return nil, apperror.Validation("expenseTotal must be a finite number")
	}

	e := &expense.Expense{
		ID:        s.idGenerator.Generate(),
		Record:    record,
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveExpense(e); err != nil {
		return nil, fmt.Errorf("saving expense to database: %w", err)
	}
	return e, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*expense.Expense, error) {
	e, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns all expenses
func (s *Service) ListExpenses() ([]*expense.Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense
func (s *Service) DeleteExpense(id string) error {
	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}
