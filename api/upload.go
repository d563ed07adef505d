package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// errUnsupportedMedia rejects file parts that are not png or jpeg.
var errUnsupportedMedia = errors.New("only .png and .jpeg formats are allowed")

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// saveUploadedImage streams a multipart file part into dir under a unique
// name and returns the stored filename. The part is fully consumed before
// returning; on any error no file is left behind.
func saveUploadedImage(part *multipart.Part, dir string) (string, error) {
	if !allowedImageTypes[part.Header.Get("Content-Type")] {
		return "", errUnsupportedMedia
	}
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], sanitizeFilename(part.FileName()))
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, part); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}
	return name, nil
}

// sanitizeFilename reduces a client-supplied filename to a safe base name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == ".." || name == "/" {
		return "image"
	}
	return name
}
