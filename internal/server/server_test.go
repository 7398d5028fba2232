package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alkime/docucast/internal/config"
	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/podcast"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/alkime/docucast/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

func testConfig(t *testing.T) *config.Server {
	t.Helper()

	return &config.Server{
		Env:            "test",
		Port:           "8000",
		HSTSMaxAge:     31536000,
		CSPMode:        "relaxed",
		LogLevel:       "info",
		AudioDir:       t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors during tests
	}))
}

type fakeProducer struct {
	mu      sync.Mutex
	err     error
	gotName string
	gotPref prefs.Preferences
	gotBody string
}

func (f *fakeProducer) Produce(_ context.Context, path, name string, p prefs.Preferences) (podcast.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, _ := os.ReadFile(path)
	f.gotName, f.gotPref, f.gotBody = name, p, string(data)

	if f.err != nil {
		return podcast.Episode{}, f.err
	}

	return podcast.Episode{
		Filename: "ep-1.mp3",
		Transcript: []conversion.Line{
			{Speaker: conversion.SpeakerHost, Text: "Welcome."},
			{Speaker: conversion.SpeakerExpert, Text: "Thanks for having me."},
		},
	}, nil
}

func uploadRequest(t *testing.T, name, content, preferences string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if name != "" {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}

	if preferences != "" {
		require.NoError(t, mw.WriteField("preferences", preferences))
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	return payload.Error
}

func TestHealthEndpoint(t *testing.T) {
	srv := server.New(testConfig(t), testLogger(), &fakeProducer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "docucast")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"), "security headers are applied")
}

func TestUpload(t *testing.T) {
	t.Run("converts a pdf", func(t *testing.T) {
		producer := &fakeProducer{}
		srv := server.New(testConfig(t), testLogger(), producer)

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "paper.pdf", fakePDF, `{"tone":"casual","humor":true}`))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var ep podcast.Episode
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ep))
		assert.Equal(t, "ep-1.mp3", ep.Filename)
		assert.Len(t, ep.Transcript, 2)

		assert.Equal(t, "paper.pdf", producer.gotName)
		assert.Equal(t, fakePDF, producer.gotBody)
		assert.Equal(t, prefs.ToneCasual, producer.gotPref.Tone)
		assert.True(t, producer.gotPref.Humor)
		assert.Equal(t, prefs.LengthMedium, producer.gotPref.Length, "unspecified options keep defaults")
	})

	tests := []struct {
		name        string
		file        string
		content     string
		preferences string
		producerErr error
		wantStatus  int
		wantError   string
	}{
		{name: "missing file", wantStatus: http.StatusBadRequest, wantError: "missing file"},
		{name: "not a pdf", file: "notes.pdf", content: "plain notes", wantStatus: http.StatusUnsupportedMediaType, wantError: "only PDF"},
		{name: "bad preferences json", file: "paper.pdf", content: fakePDF, preferences: "{", wantStatus: http.StatusBadRequest, wantError: "invalid preferences"},
		{name: "unknown tone", file: "paper.pdf", content: fakePDF, preferences: `{"tone":"shouty"}`, wantStatus: http.StatusBadRequest, wantError: `invalid tone "shouty"`},
		{name: "production failure", file: "paper.pdf", content: fakePDF, producerErr: errors.New("narrator offline"), wantStatus: http.StatusInternalServerError, wantError: "narrator offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := server.New(testConfig(t), testLogger(), &fakeProducer{err: tt.producerErr})

			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, uploadRequest(t, tt.file, tt.content, tt.preferences))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, errorOf(t, w), tt.wantError)
		})
	}

	t.Run("too large", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.MaxUploadBytes = 64
		srv := server.New(cfg, testLogger(), &fakeProducer{})

		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, uploadRequest(t, "paper.pdf", fakePDF+string(make([]byte, 1024)), ""))

		assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	})
}

func TestAudioRoute(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AudioDir, "ep-1.mp3"), []byte("ID3-episode"), 0o600))
	srv := server.New(cfg, testLogger(), &fakeProducer{})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audio/ep-1.mp3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3-episode", w.Body.String())

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audio/missing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.AudioDir, ".partial.mp3"), []byte("half"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.AudioDir, ".staging"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.AudioDir, ".staging", "ep-2.mp3"), []byte("half"), 0o600))

	for _, path := range []string{"/audio/.partial.mp3", "/audio/.staging/ep-2.mp3"} {
		w = httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestStagingOutsideAudioRoute(t *testing.T) {
	cfg := testConfig(t)
	producer := podcast.NewProducer(textExtractor("Short text here."), podcast.ExcerptWriter{}, podcast.NewToneNarrator(), cfg.AudioDir)

	rel, err := filepath.Rel(cfg.AudioDir, producer.StagingDir())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, ".."), "staging %s is outside the served dir", producer.StagingDir())
}

type textExtractor string

func (e textExtractor) Extract(context.Context, string) (string, error) {
	return string(e), nil
}

// TestClientRoundTrip drives the real client against the service with the
// offline producer.
func TestClientRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	producer := podcast.NewProducer(
		textExtractor("Transformers changed language modelling. Attention lets every token see every other token."),
		podcast.ExcerptWriter{},
		podcast.NewToneNarrator(),
		cfg.AudioDir,
	)

	ts := httptest.NewServer(server.New(cfg, testLogger(), producer).Router())
	defer ts.Close()

	pdfPath := filepath.Join(t.TempDir(), "attention.pdf")
	//nolint:gosec // Test file
	require.NoError(t, os.WriteFile(pdfPath, []byte(fakePDF), 0o644))

	doc, err := conversion.OpenDocument(pdfPath)
	require.NoError(t, err)

	client := conversion.NewClient(ts.URL, ts.Client())

	resp, err := client.Submit(context.Background(), conversion.Request{Document: doc, Preferences: prefs.Default()})
	require.NoError(t, err)

	result, err := resp.Decode()
	require.NoError(t, err)
	assert.Equal(t, conversion.AudioURL(ts.URL, result.ID), result.URL)
	require.NotEmpty(t, result.Transcript)
	assert.Equal(t, conversion.SpeakerHost, result.Transcript[0].Speaker)
	assert.Contains(t, result.Transcript[0].Text, "attention")

	saved, err := client.Download(context.Background(), result, doc, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "attention.mp3", filepath.Base(saved))

	stored, err := os.ReadFile(filepath.Join(cfg.AudioDir, result.ID))
	require.NoError(t, err)
	downloaded, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, stored, downloaded)
}
