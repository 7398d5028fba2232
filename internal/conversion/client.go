package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// TransportError reports a submission or download that did not complete:
// the request failed, the service answered with a non-success status, or the
// payload could not be parsed.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: service returned %d: %v", e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client handles conversion service requests.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. Timeouts are taken
// from the request context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a successful submission whose payload has not been read yet.
// Callers must Decode or Close it.
type Response struct {
	baseURL string
	body    io.ReadCloser
}

// NewResponse wraps a payload reader. Used by fakes of the service.
func NewResponse(baseURL string, body io.ReadCloser) *Response {
	return &Response{baseURL: baseURL, body: body}
}

type uploadPayload struct {
	Filename   string `json:"filename"`
	Transcript []Line `json:"transcript"`
}

// Decode reads the payload and closes the response.
func (r *Response) Decode() (AudioResult, error) {
	defer r.Close()

	var payload uploadPayload
	if err := json.NewDecoder(r.body).Decode(&payload); err != nil {
		return AudioResult{}, &TransportError{Op: "decode response", Err: err}
	}

	if payload.Filename == "" {
		return AudioResult{}, &TransportError{Op: "decode response", Err: errors.New("missing result identifier")}
	}

	return AudioResult{
		ID:         payload.Filename,
		URL:        AudioURL(r.baseURL, payload.Filename),
		Transcript: payload.Transcript,
	}, nil
}

// Close releases the response body.
func (r *Response) Close() {
	if r.body == nil {
		return
	}

	if err := r.body.Close(); err != nil {
		slog.Debug("failed to close response body", "error", err)
	}

	r.body = nil
}

// Submit uploads the document with its preferences. It returns as soon as the
// service has answered with a success status; the payload is read by Decode.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	prefsJSON, err := json.Marshal(req.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}

	file, err := os.Open(req.Document.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", req.Document.Path, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer file.Close()
		pw.CloseWithError(writeUpload(mw, file, req.Document.Name, prefsJSON))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	slog.Debug("Submitting document", "name", req.Document.Name, "url", httpReq.URL.String())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "submit", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: errors.New(readErrorMessage(resp.Body))}
	}

	return NewResponse(c.baseURL, resp.Body), nil
}

func writeUpload(mw *multipart.Writer, file io.Reader, name string, prefsJSON []byte) error {
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}

	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to stream document: %w", err)
	}

	if err := mw.WriteField("preferences", string(prefsJSON)); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return mw.Close()
}

// readErrorMessage extracts {"error": "..."} from a failure body, falling
// back to the raw text.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no details"
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}

	return strings.TrimSpace(string(raw))
}

// Download saves the result's audio into dir, named after the source document.
// It returns the written path.
func (c *Client) Download(ctx context.Context, result AudioResult, doc Document, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory %s: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Op: "download", StatusCode: resp.StatusCode, Err: errors.New(readErrorMessage(resp.Body))}
	}

	dest := filepath.Join(dir, DownloadName(doc))

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", &TransportError{Op: "download", Err: err}
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	slog.Info("Saved episode", "path", dest)

	return dest, nil
}
