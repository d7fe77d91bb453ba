package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileUpload(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	err := os.WriteFile(testFile, []byte("test file content"), 0o644)
	require.NoError(t, err)

	upload := NewFileUpload(testFile)

	assert.Equal(t, "test.txt", upload.FileName)
	_, isLazy := upload.Reader.(*lazyFileReader)
	assert.True(t, isLazy)
}

func TestMultipartBody_AddFieldAndAddFile(t *testing.T) {
	mp := (&MultipartBody{}).
		AddField("title", "My Document").
		AddField("category", "reports").
		AddFile("file1", "doc1.pdf", FileUpload{Reader: strings.NewReader("content1")}).
		AddFile("file2", "doc2.pdf", FileUpload{Reader: strings.NewReader("content2")})

	require.Len(t, mp.Fields, 2)
	assert.Equal(t, "title", mp.Fields[0].key)
	assert.Equal(t, "My Document", mp.Fields[0].value)

	require.Len(t, mp.Files, 2)
	assert.Equal(t, "file1", mp.Files[0].FieldName)
	assert.Equal(t, "doc1.pdf", mp.Files[0].FileName)
}

func TestClient_MultipartUpload(t *testing.T) {
	var receivedContentType string
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL))

	body := (&MultipartBody{}).
		AddFile("document", "test.txt", FileUpload{Reader: strings.NewReader("file content")}).
		AddField("title", "Test Upload")

	resp, err := client.Post(context.Background(), "/upload", body)

	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Contains(t, receivedContentType, "multipart/form-data")
	assert.Contains(t, string(receivedBody), "file content")
	assert.Contains(t, string(receivedBody), "Test Upload")
}

func TestBuildMultipartBody(t *testing.T) {
	mp := (&MultipartBody{}).
		AddFile("doc", "test.txt", FileUpload{Reader: strings.NewReader("hello world")}).
		AddField("name", "test")

	buf, contentType, err := buildMultipartBody(mp)

	require.NoError(t, err)
	assert.Contains(t, contentType, "multipart/form-data")
	assert.Contains(t, buf.String(), "hello world")
	assert.Contains(t, buf.String(), "name")
	assert.Contains(t, buf.String(), "test")
}

func TestBuildMultipartBody_WithRealFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "upload.txt")
	err := os.WriteFile(testFile, []byte("real file content"), 0o644)
	require.NoError(t, err)

	mp := (&MultipartBody{}).
		AddFile("document", "upload.txt", NewFileUpload(testFile)).
		AddField("title", "Real File")

	buf, contentType, err := buildMultipartBody(mp)

	require.NoError(t, err)
	assert.Contains(t, contentType, "multipart/form-data")
	assert.Contains(t, buf.String(), "real file content")
}

func TestBuildMultipartBody_FileNotFound(t *testing.T) {
	mp := (&MultipartBody{}).AddFile("document", "file.txt", NewFileUpload("/nonexistent/file.txt"))

	_, _, err := buildMultipartBody(mp)

	assert.Error(t, err)
}

func TestLazyFileReader_Read(t *testing.T) {
	lazy := &lazyFileReader{path: "/some/path"}
	buf := make([]byte, 10)
	n, err := lazy.Read(buf)

	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}
