package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, fmt.Errorf("document exceeds %d bytes", tooLarge.Limit))
			return
		}

		s.fail(c, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))

		return
	}

	p, err := parsePreferences(c.PostForm("preferences"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "docucast-upload-*")
	if err != nil {
		s.fail(c, http.StatusInternalServerError, fmt.Errorf("failed to stage upload: %w", err))
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "document.pdf")
	if err := c.SaveUploadedFile(fh, path); err != nil {
		s.fail(c, http.StatusInternalServerError, fmt.Errorf("failed to stage upload: %w", err))
		return
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, fmt.Errorf("failed to detect media type: %w", err))
		return
	}

	if !mt.Is(conversion.AcceptedMediaType) {
		s.fail(c, http.StatusUnsupportedMediaType, fmt.Errorf("%s is %s, only PDF documents can be converted", fh.Filename, mt.String()))
		return
	}

	s.logger.Info("Converting document", "name", fh.Filename, "size", fh.Size, "preferences", p)

	ep, err := s.producer.Produce(c.Request.Context(), path, fh.Filename, p)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, ep)
}

// parsePreferences reads the preferences field. Missing options keep their
// defaults.
func parsePreferences(raw string) (prefs.Preferences, error) {
	p := prefs.Default()
	if raw == "" {
		return p, nil
	}

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return prefs.Preferences{}, fmt.Errorf("invalid preferences: %w", err)
	}

	if err := p.Validate(); err != nil {
		return prefs.Preferences{}, fmt.Errorf("invalid preferences: %w", err)
	}

	return p, nil
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Upload failed", "status", status, "error", err)
	} else {
		s.logger.Info("Upload rejected", "status", status, "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
