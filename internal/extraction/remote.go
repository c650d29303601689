package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pigfarm/receipt-capture/internal/apperror"
	"github.com/pigfarm/receipt-capture/internal/imaging"
)

const (
	// ImageField is the multipart field carrying the receipt image
	ImageField = "image"

	extractFallback = "An error occurred during OCR processing"
)

// Remote submits images to an extraction service's /ocr endpoint
type Remote struct {
	url    string
	token  string
	client *http.Client
}

// NewRemote creates a Remote for the service at baseURL.
// An empty token sends the request without an Authorization header.
func NewRemote(baseURL, token string) *Remote {
	return NewRemoteWithHTTP(baseURL, token, &http.Client{
		Timeout: 120 * time.Second, // OCR plus an LLM pass can be slow
	})
}

// NewRemoteWithHTTP creates a Remote with a custom HTTP client for testing
func NewRemoteWithHTTP(baseURL, token string, httpClient *http.Client) *Remote {
	return &Remote{
		url:    strings.TrimRight(baseURL, "/") + "/ocr",
		token:  token,
		client: httpClient,
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Extract posts the image as a single multipart field
func (r *Remote) Extract(ctx context.Context, image *imaging.Asset) (Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, ImageField, quoteEscaper.Replace(image.Filename)))
	header.Set("Content-Type", image.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperror.Remote(0, extractFallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.FromResponse(resp, extractFallback)
	}

	var result Result
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&result); err != nil {
		return nil, apperror.Remote(resp.StatusCode, extractFallback, fmt.Errorf("decoding response: %w", err))
	}
	if result == nil {
		result = Result{}
	}
	return result, nil
}

// Close is a no-op for the HTTP client
func (r *Remote) Close() error {
	return nil
}
