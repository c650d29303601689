package capture

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/expense"
	"github.com/pigfarm/receipt-capture/internal/extraction"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

const noImageMessage = "no image selected"

// Options configures a Session
type Options struct {
	// Rasterizer decodes, paints and encodes images. Defaults to imaging.NewSoftware().
	Rasterizer imaging.Rasterizer
	// Token is the bearer credential sent with expense submissions
	Token string
	// SurfaceCap bounds the render surface edge. Defaults to imaging.DefaultSurfaceCap.
	SurfaceCap int
	// NormalizeDates rewrites extracted dates to YYYY-MM-DD
	NormalizeDates bool
}

// Session is one capture flow, from image selection to a persisted expense.
// All methods are safe to call from multiple goroutines.
type Session struct {
	id         uuid.UUID
	rasterizer imaging.Rasterizer
	extractor  extraction.Extractor
	expenses   expense.Store
	normalizer extraction.Normalizer
	surfaceCap int
	token      string

	extracting *semaphore.Weighted
	persisting *semaphore.Weighted

	mu          sync.Mutex
	state       State
	source      *imaging.SourceImage
	orientation imaging.Orientation
	surface     *imaging.Surface
	draft       expense.Draft

	// generation changes on Reset, selection whenever the image is replaced or cleared
	generation uint64
	selection  uint64
}

// NewSession creates an idle session
func NewSession(extractor extraction.Extractor, expenses expense.Store, opts Options) *Session {
	if opts.Rasterizer == nil {
		opts.Rasterizer = imaging.NewSoftware()
	}
	if opts.SurfaceCap == 0 {
		opts.SurfaceCap = imaging.DefaultSurfaceCap
	}

	return &Session{
		id:         uuid.New(),
		rasterizer: opts.Rasterizer,
		extractor:  extractor,
		expenses:   expenses,
		normalizer: extraction.Normalizer{NormalizeDates: opts.NormalizeDates},
		surfaceCap: opts.SurfaceCap,
		token:      opts.Token,
		extracting: semaphore.NewWeighted(1),
		persisting: semaphore.NewWeighted(1),
		state:      Idle,
	}
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id.String()
}

// State returns the current position in the capture flow
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectImage replaces the selected image and resets the orientation.
// Empty data clears the selection without an error.
func (s *Session) SelectImage(filename string, data []byte, mimeType string) error {
	if len(data) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.clearSelectionLocked()
		if s.state == ImageSelected {
			s.state = Idle
		}
		return nil
	}

	src, err := imaging.Load(s.rasterizer, filename, data, mimeType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
	s.source = src
	s.surface = imaging.NewSurface(src, s.surfaceCap)
	s.state = ImageSelected

	slog.Info("Image selected", "session", s.id, "filename", src.Filename, "content_type", src.MimeType, "width", src.Width, "height", src.Height)
	return nil
}

// clearSelectionLocked drops the image and invalidates anything staged from it
func (s *Session) clearSelectionLocked() {
	s.selection++
	s.source = nil
	s.surface = nil
	s.orientation = 0
}

// Source returns the selected image, or nil
func (s *Session) Source() *imaging.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Preview returns the selected image as a data URL, or "" when nothing is selected
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ""
	}
	return s.source.DataURL()
}

// Rotate turns the image by delta degrees, which must be -90 or 90.
// The surface is repainted lazily by the next Render or submission.
func (s *Session) Rotate(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return apperror.Validation(noImageMessage)
	}
	o, err := s.orientation.Rotate(delta)
	if err != nil {
		return err
	}
	s.orientation = o
	return nil
}

// Orientation returns the current rotation in degrees
func (s *Session) Orientation() imaging.Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orientation
}

// Render returns the surface painted at the current orientation
func (s *Session) Render() (*image.NRGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return nil, apperror.Validation(noImageMessage)
	}
	return s.surface.Render(s.rasterizer, s.source, s.orientation)
}

// stageLocked builds the image to upload: the original bytes when unrotated,
// otherwise the surface re-encoded in the original format family
func (s *Session) stageLocked() (*imaging.Asset, error) {
	if s.orientation == 0 {
		return s.source.Asset(), nil
	}
	raster, err := s.surface.Render(s.rasterizer, s.source, s.orientation)
	if err != nil {
		return nil, apperror.Encoding("rendering rotated image", err)
	}
	return imaging.EncodeAsset(s.rasterizer, raster, s.source.MimeType)
}

// SubmitForExtraction sends the staged image to the extractor and populates
// the draft from the result. On failure the previous draft is kept.
func (s *Session) SubmitForExtraction(ctx context.Context) (expense.Draft, error) {
	if !s.extracting.TryAcquire(1) {
		return expense.Draft{}, ErrExtractionInFlight
	}
	defer s.extracting.Release(1)

	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return expense.Draft{}, apperror.Validation(noImageMessage)
	}
	asset, err := s.stageLocked()
	if err != nil {
		s.mu.Unlock()
		slog.Error("Failed to stage image", "session", s.id, "error", err)
		return expense.Draft{}, err
	}
	selection := s.selection
	s.state = Submitting
	s.mu.Unlock()

	result, err := s.extractor.Extract(ctx, asset)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection != selection {
		slog.Warn("Discarding stale extraction response", "session", s.id, "filename", asset.Filename)
		return expense.Draft{}, ErrSessionReset
	}
	if err != nil {
		s.state = ExtractionFailed
		slog.Error("Extraction failed", "session", s.id, "filename", asset.Filename, "content_type", asset.MimeType, "size", len(asset.Data), "error", err)
		return expense.Draft{}, err
	}

	s.draft = s.normalizer.Normalize(result)
	s.state = ExtractionPopulated
	return s.draft, nil
}

// Draft returns the current draft
func (s *Session) Draft() expense.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// EditDraft replaces the draft with the user's edits
func (s *Session) EditDraft(d expense.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
	s.state = Editing
}

// SubmitExpense validates the draft and persists it with the session token.
// Success clears the draft, and the selection unless a new image was picked
// while the request was out. Failure leaves both intact.
func (s *Session) SubmitExpense(ctx context.Context) (*expense.Expense, error) {
	if !s.persisting.TryAcquire(1) {
		return nil, ErrPersistInFlight
	}
	defer s.persisting.Release(1)

	s.mu.Lock()
	record, err := s.draft.Record()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	generation, selection := s.generation, s.selection
	s.mu.Unlock()

	created, err := s.expenses.Create(ctx, s.token, record)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		slog.Warn("Discarding stale expense response", "session", s.id)
		return nil, ErrSessionReset
	}
	if err != nil {
		s.state = PersistFailed
		slog.Error("Failed to submit expense", "session", s.id, "error", err)
		return nil, err
	}

	s.draft = expense.Draft{}
	if s.selection == selection {
		s.clearSelectionLocked()
	}
	s.state = Persisted
	return created, nil
}

// Reset abandons the flow. Responses to requests still outstanding are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.clearSelectionLocked()
	s.draft = expense.Draft{}
	s.state = Idle
}
