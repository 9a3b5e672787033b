// File: internal/filestorage/service.go
package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize bounds a single uploaded image.
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// FileStorageService keeps uploaded images on the local disk under a media root.
type FileStorageService struct {
	storagePath string
	logger      *zap.Logger
}

// NewFileStorageService creates the media root when it is missing.
func NewFileStorageService(storagePath string, logger *zap.Logger) (*FileStorageService, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	logger.Info("File storage ready", zap.String("storagePath", storagePath))
	return &FileStorageService{storagePath: storagePath, logger: logger.Named("file_storage")}, nil
}

// Root returns the media root directory.
func (s *FileStorageService) Root() string {
	return s.storagePath
}

// SaveUploadedFile writes an image under subDir with a random name and returns its
// slash-separated path relative to the media root, e.g. "avatars/<uuid>.png".
func (s *FileStorageService) SaveUploadedFile(fileHeader *multipart.FileHeader, subDir string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}
	if fileHeader.Size > MaxImageSize {
		return "", fmt.Errorf("file too large: %d bytes", fileHeader.Size)
	}
	extension, err := imageExtension(fileHeader)
	if err != nil {
		return "", err
	}

	cleanSubDir := filepath.Clean(subDir)
	if cleanSubDir == ".." || strings.HasPrefix(cleanSubDir, ".."+string(filepath.Separator)) || filepath.IsAbs(cleanSubDir) {
		return "", fmt.Errorf("invalid subDir path")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	destinationDir := filepath.Join(s.storagePath, cleanSubDir)
	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", destinationDir, err)
	}

	name := uuid.New().String() + extension
	destinationPath := filepath.Join(destinationDir, name)
	dst, err := os.Create(destinationPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", destinationPath, err)
	}
	if _, err = io.Copy(dst, io.LimitReader(src, MaxImageSize+1)); err != nil {
		dst.Close()
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Debug("File saved", zap.String("path", destinationPath))
	return filepath.ToSlash(filepath.Join(cleanSubDir, name)), nil
}

// DeleteFile removes a file given its path relative to the media root. A missing file is not an error.
func (s *FileStorageService) DeleteFile(relativePath string) error {
	if relativePath == "" {
		return fmt.Errorf("relative path cannot be empty")
	}
	clean := filepath.Clean(filepath.FromSlash(relativePath))
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		s.logger.Warn("Refusing to delete path outside media root", zap.String("relativePath", relativePath))
		return fmt.Errorf("invalid file path for deletion")
	}

	fullPath := filepath.Join(s.storagePath, clean)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	s.logger.Debug("File deleted", zap.String("path", fullPath))
	return nil
}

func imageExtension(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	if allowedExtensions[ext] {
		return ext, nil
	}
	contentType := fh.Header.Get("Content-Type")
	for prefix, inferred := range imageExtensions {
		if strings.HasPrefix(contentType, prefix) {
			return inferred, nil
		}
	}
	return "", fmt.Errorf("unsupported file type or missing extension: %s", contentType)
}
