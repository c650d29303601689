package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/capture"
	"github.com/pigfarm/receipt-capture/internal/expense"
	"github.com/pigfarm/receipt-capture/internal/extraction"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type config struct {
	apiURL         string
	token          string
	imagePath      string
	contentType    string
	rotate         int
	surfaceCap     int
	extractorType  string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	normalizeDates bool
	legacyOCRAuth  bool
	expenseType    string
	date           string
	total          string
	name           string
	save           bool
	preview        string
	list           bool
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	var cfg config
	flags := ff.NewFlagSet("receipt-capture")
	flags.StringVar(&cfg.apiURL, 0, "api-url", "http://localhost:8000", "Base URL of the extraction and expense API")
	flags.StringVar(&cfg.token, 0, "token", "", "Bearer token for the API")
	flags.StringVar(&cfg.imagePath, 0, "image", "", "Receipt image to capture")
	flags.StringVar(&cfg.contentType, 0, "content-type", "", "Declared MIME type of the image (sniffed when empty)")
	flags.IntVar(&cfg.rotate, 0, "rotate", 0, "Rotation before extraction in multiples of 90 degrees, negative turns left")
	flags.IntVar(&cfg.surfaceCap, 0, "surface-cap", imaging.DefaultSurfaceCap, "Maximum edge of the rotated image in pixels")
	flags.StringVar(&cfg.extractorType, 0, "extractor", "remote", "Extractor type: 'remote', 'gemini' or 'ollama'")
	flags.StringVar(&cfg.geminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	flags.StringVar(&cfg.geminiModel, 0, "gemini-model", "gemini-2.5-flash", "Google Gemini model name")
	flags.StringVar(&cfg.ollamaURL, 0, "ollama-url", "http://localhost:11434", "Ollama API base URL")
	flags.StringVar(&cfg.ollamaModel, 0, "ollama-model", "llava", "Ollama model name")
	flags.BoolVar(&cfg.normalizeDates, 0, "normalize-dates", "Rewrite extracted dates as YYYY-MM-DD")
	flags.BoolVar(&cfg.legacyOCRAuth, 0, "legacy-ocr-auth", "Send /ocr requests without the bearer token")
	flags.StringVar(&cfg.expenseType, 0, "type", "", "Override the expense type")
	flags.StringVar(&cfg.date, 0, "date", "", "Override the expense date")
	flags.StringVar(&cfg.total, 0, "total", "", "Override the expense total")
	flags.StringVar(&cfg.name, 0, "name", "", "Override the expense name")
	flags.BoolVar(&cfg.save, 0, "save", "Persist the expense after extraction")
	flags.StringVar(&cfg.preview, 0, "preview", "", "Write the rotated preview to this PNG file")
	flags.BoolVar(&cfg.list, 0, "list", "List stored expenses and exit")
	showVersion := flags.BoolLong("version", "Show version information")

	if err := ff.Parse(flags, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_CAPTURE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Capture failed", "error", apperror.Message(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	store := expense.NewClient(cfg.apiURL)

	if cfg.list {
		return listExpenses(ctx, store, cfg.token)
	}
	if cfg.imagePath == "" {
		return apperror.Validation("no image selected: pass --image")
	}
	if cfg.rotate%90 != 0 {
		return apperror.Validation(fmt.Sprintf("rotation must be a multiple of 90, got %d", cfg.rotate))
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer extractor.Close()

	session := capture.NewSession(extractor, store, capture.Options{
		Token:          cfg.token,
		SurfaceCap:     cfg.surfaceCap,
		NormalizeDates: cfg.normalizeDates,
	})

	data, err := os.ReadFile(cfg.imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	if err := session.SelectImage(filepath.Base(cfg.imagePath), data, cfg.contentType); err != nil {
		return err
	}

	step := imaging.RotateRight
	if cfg.rotate < 0 {
		step = imaging.RotateLeft
	}
	for i := 0; i < abs(cfg.rotate)/90; i++ {
		if err := session.Rotate(step); err != nil {
			return err
		}
	}

	if cfg.preview != "" {
		if err := writePreview(session, cfg.preview); err != nil {
			return err
		}
	}

	slog.Info("Submitting image for extraction", "session", session.ID(), "orientation", int(session.Orientation()))
	draft, err := session.SubmitForExtraction(ctx)
	if err != nil {
		return err
	}

	draft = applyOverrides(draft, cfg)
	session.EditDraft(draft)
	fmt.Println(draft)

	if !cfg.save {
		return nil
	}

	created, err := session.SubmitExpense(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("saved expense %s\n", created.ID)
	return nil
}

func newExtractor(cfg config) (extraction.Extractor, error) {
	switch cfg.extractorType {
	case "remote":
		ocrToken := cfg.token
		if cfg.legacyOCRAuth {
			ocrToken = ""
		}
		return extraction.NewRemote(cfg.apiURL, ocrToken), nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		return extraction.NewGemini(apiKey, cfg.geminiModel)
	case "ollama":
		return extraction.NewOllama(cfg.ollamaURL, cfg.ollamaModel), nil
	default:
		return nil, fmt.Errorf("invalid extractor type %q: want remote, gemini or ollama", cfg.extractorType)
	}
}

func applyOverrides(draft expense.Draft, cfg config) expense.Draft {
	if cfg.expenseType != "" {
		draft.Type = cfg.expenseType
	}
	if cfg.date != "" {
		draft.Date = cfg.date
	}
	if cfg.total != "" {
		draft.SetTotal(cfg.total)
	}
	if cfg.name != "" {
		draft.Name = cfg.name
	}
	return draft
}

func writePreview(session *capture.Session, path string) error {
	raster, err := session.Render()
	if err != nil {
		return err
	}
	data, err := imaging.NewSoftware().Encode(raster, imaging.PNG)
	if err != nil {
		return fmt.Errorf("encoding preview: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	slog.Info("Wrote preview", "path", path, "size", raster.Bounds().Dx())
	return nil
}

func listExpenses(ctx context.Context, store expense.Store, token string) error {
	expenses, err := store.List(ctx, token)
	if err != nil {
		return err
	}
	for _, e := range expenses {
		fmt.Printf("%s\t%s\t%s\t%.2f\t%s\n", e.ID, e.ExpenseDate, e.ExpenseType, e.ExpenseTotal, e.ExpenseName)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
