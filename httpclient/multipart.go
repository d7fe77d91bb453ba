package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// FileUpload represents a file to be uploaded in a multipart request, added
// via MultipartBody.AddFile.
type FileUpload struct {
	// FieldName is the form field name for the file.
	// This is the name used in the multipart form data.
	//
	// Example: "document", "avatar", "attachment"
	FieldName string

	// FileName is the name of the file as it appears in the upload.
	// This is typically the original filename or a custom name.
	//
	// Example: "report.pdf", "profile.jpg"
	FileName string

	// Reader provides the file content.
	// For file paths, this is automatically created from os.Open.
	// For in-memory data, use bytes.NewReader or strings.NewReader.
	Reader io.Reader
}

// NewFileUpload builds a FileUpload that opens path lazily when the request
// actually executes, so building a MultipartBody never touches the
// filesystem until Do/Get/Post et al. run.
func NewFileUpload(filePath string) FileUpload {
	return FileUpload{
		FileName: filepath.Base(filePath),
		Reader:   &lazyFileReader{path: filePath},
	}
}

// lazyFileReader defers file opening until the request is executed.
type lazyFileReader struct {
	path string
}

func (l *lazyFileReader) Read(_ []byte) (int, error) {
	// This should never be called directly - buildMultipart handles it
	return 0, io.EOF
}

// buildMultipartBody builds a multipart form body from a MultipartBody.
func buildMultipartBody(mp *MultipartBody) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, field := range mp.Fields {
		if err := writer.WriteField(field.key, field.value); err != nil {
			return nil, "", err
		}
	}

	for _, file := range mp.Files {
		reader := file.Reader
		if lazy, ok := reader.(*lazyFileReader); ok {
			f, err := os.Open(lazy.path)
			if err != nil {
				return nil, "", err
			}
			defer f.Close()
			reader = f
		}

		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, reader); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf, writer.FormDataContentType(), nil
}
