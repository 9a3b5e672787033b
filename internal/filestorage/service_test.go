package filestorage

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) (*FileStorageService, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "media")
	svc, err := NewFileStorageService(root, zap.NewNop())
	require.NoError(t, err)
	return svc, root
}

func newTestFileHeader(t *testing.T, filename, content, contentType string) *multipart.FileHeader {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename="%s"`, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.NotEmpty(t, form.File["avatar"])
	return form.File["avatar"][0]
}

func TestNewFileStorageService_EmptyPath(t *testing.T) {
	_, err := NewFileStorageService("", zap.NewNop())
	assert.Error(t, err)
}

func TestSaveUploadedFile(t *testing.T) {
	svc, root := newTestStorage(t)

	rel, err := svc.SaveUploadedFile(newTestFileHeader(t, "me.PNG", "png bytes", "image/png"), "avatars")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "avatars/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(content))
}

func TestSaveUploadedFile_InfersExtension(t *testing.T) {
	svc, _ := newTestStorage(t)

	rel, err := svc.SaveUploadedFile(newTestFileHeader(t, "foto", "jpeg bytes", "image/jpeg"), "avatars")

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rel, ".jpg"))
}

func TestSaveUploadedFile_Rejects(t *testing.T) {
	svc, _ := newTestStorage(t)

	_, err := svc.SaveUploadedFile(newTestFileHeader(t, "notes.txt", "text", "text/plain"), "avatars")
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = svc.SaveUploadedFile(newTestFileHeader(t, "a.png", "x", "image/png"), "../outside")
	assert.ErrorContains(t, err, "invalid subDir")

	_, err = svc.SaveUploadedFile(nil, "avatars")
	assert.EqualError(t, err, "fileHeader cannot be nil")
}

func TestSaveUploadedFile_TooLarge(t *testing.T) {
	svc, _ := newTestStorage(t)
	fh := newTestFileHeader(t, "big.png", "x", "image/png")
	fh.Size = MaxImageSize + 1

	_, err := svc.SaveUploadedFile(fh, "avatars")

	assert.ErrorContains(t, err, "too large")
}

func TestDeleteFile(t *testing.T) {
	svc, root := newTestStorage(t)
	rel, err := svc.SaveUploadedFile(newTestFileHeader(t, "a.webp", "webp", "image/webp"), "avatars")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(rel))

	_, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteFile_MissingIsNotAnError(t *testing.T) {
	svc, _ := newTestStorage(t)
	assert.NoError(t, svc.DeleteFile("avatars/missing.png"))
}

func TestDeleteFile_PathTraversal(t *testing.T) {
	svc, root := newTestStorage(t)
	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	err := svc.DeleteFile("../outside.txt")

	assert.ErrorContains(t, err, "invalid file path for deletion")
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}
