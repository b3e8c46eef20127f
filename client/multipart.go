package client

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

var openFile = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type formFile struct {
	field    string
	filename string
	path     string
}

type formPart struct {
	file   formFile
	reader io.ReadCloser
}

// multipartBody opens every file up front and streams the form through a pipe.
func multipartBody(fields map[string]string, files []formFile) (io.Reader, string, error) {
	parts := make([]formPart, 0, len(files))
	for _, f := range files {
		r, err := openFile(f.path)
		if err != nil {
			closeParts(parts)
			return nil, "", fmt.Errorf("open %s: %w", f.field, err)
		}
		parts = append(parts, formPart{file: f, reader: r})
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer closeParts(parts)
		pw.CloseWithError(writeMultipart(writer, fields, parts))
	}()
	return pr, writer.FormDataContentType(), nil
}

func writeMultipart(writer *multipart.Writer, fields map[string]string, parts []formPart) error {
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	for _, part := range parts {
		dst, err := writer.CreateFormFile(part.file.field, part.file.filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(dst, part.reader); err != nil {
			return fmt.Errorf("copy %s: %w", part.file.field, err)
		}
	}
	return writer.Close()
}

func closeParts(parts []formPart) {
	for _, part := range parts {
		_ = part.reader.Close()
	}
}

// photoFilename keeps the original extension when it is an image one.
func photoFilename(path string, index int) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		ext = ".jpg"
	}
	return fmt.Sprintf("photo_%d%s", index+1, ext)
}
