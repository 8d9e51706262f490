package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
)

// UploadURLPrefix is where stored files are served.
const UploadURLPrefix = "/uploads/"

// UploadService stores artwork and section images on disk.
type UploadService interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*models.Upload, error)
}

type uploadService struct {
	uploadDir string
	maxSize   int64
}

// NewUploadService creates the upload directory if needed.
func NewUploadService(uploadDir string, maxSize int64) (UploadService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &uploadService{uploadDir: uploadDir, maxSize: maxSize}, nil
}

// allowedImageTypes maps sniffed content types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload sniffs the content type from the first bytes instead of trusting
// the client, then writes the file as {uuid}_{name}{ext}.
func (s *uploadService) Upload(ctx context.Context, file io.Reader, filename string) (*models.Upload, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: file is empty", pkg.ErrBadRequest)
	}

	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: file type not allowed: %s", pkg.ErrBadRequest, contentType)
	}

	diskName := uuid.NewString() + "_" + sanitizeFilename(filename) + ext
	destPath := filepath.Join(s.uploadDir, diskName)

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	// One byte over the limit is enough to reject.
	written, err := io.Copy(dest, io.LimitReader(io.MultiReader(bytes.NewReader(head), file), s.maxSize+1))
	closeErr := dest.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(destPath)
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	zap.L().Named("upload").Info("image stored", zap.String("file", diskName), zap.Int64("size", written))

	return &models.Upload{
		URL:         UploadURLPrefix + diskName,
		Filename:    diskName,
		Size:        written,
		ContentType: contentType,
	}, nil
}

// sanitizeFilename keeps the base name without extension, reduced to a
// safe character set. Path traversal ("../../etc/passwd") ends up as
// "passwd".
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '-'
		}
		return -1
	}, name)

	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = "image"
	}
	return name
}
