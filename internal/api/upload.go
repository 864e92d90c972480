package api

import (
	"io"
	"mime/multipart"
	"net/http"
)

// MaxUploadBytes bounds multipart form buffering.
const MaxUploadBytes = 32 << 20

// FileUpload is one buffered multipart file.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// FormValue returns a pointer to the first value for key, nil when absent.
// Distinguishes "field omitted" from "field set to empty".
func FormValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

// FormFile buffers the first file for key, nil when absent or unreadable.
func FormFile(r *http.Request, key string) *FileUpload {
	if r.MultipartForm == nil {
		return nil
	}
	fhs, ok := r.MultipartForm.File[key]
	if !ok || len(fhs) == 0 {
		return nil
	}
	return ReadFileHeader(fhs[0])
}

// FormFiles buffers every file for key, skipping unreadable ones.
func FormFiles(r *http.Request, key string) []FileUpload {
	if r.MultipartForm == nil {
		return nil
	}
	var out []FileUpload
	for _, fh := range r.MultipartForm.File[key] {
		if f := ReadFileHeader(fh); f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// ReadFileHeader buffers one multipart file header.
func ReadFileHeader(fh *multipart.FileHeader) *FileUpload {
	f, err := fh.Open()
	if err != nil {
		return nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return &FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}
}
