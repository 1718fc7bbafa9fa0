package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/ref"
)

const testToken = "s3cr3t"

func newTestServer(t *testing.T) (*Server, *blob.Engine) {
	t.Helper()
	e, err := blob.New(t.TempDir())
	if err != nil {
		t.Fatalf("blob.New: %v", err)
	}
	return New(e, testToken, nil), e
}

func multipartUpload(t *testing.T, parts map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for filename, content := range parts {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

// TestUploadThenDownload exercises end-to-end scenario 1 of spec.md §8.
func TestUploadThenDownload(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, map[string]string{"greet.txt": "hello"})

	req := httptest.NewRequest(http.MethodPost, "/blobs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(authTokenHeader, testToken)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	var refs []string
	if err := json.Unmarshal(w.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	const wantRef = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if len(refs) != 1 || refs[0] != wantRef {
		t.Fatalf("refs = %v, want [%s]", refs, wantRef)
	}

	req = httptest.NewRequest(http.MethodGet, "/blobs/"+wantRef, nil)
	req.Header.Set(authTokenHeader, testToken)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d", w.Code)
	}
	if w.Body.String() != "hello" {
		t.Fatalf("body = %q, want hello", w.Body.String())
	}
	if got := w.Header().Get("filename"); got != "greet.txt" {
		t.Errorf("filename header = %q, want greet.txt", got)
	}
	if got := w.Header().Get("Content-Type"); got == "" {
		t.Error("expected a content-type header to be set")
	}
}

// TestUploadDedup exercises end-to-end scenario 2: uploading identical
// content twice yields the same reference and leaves exactly one
// on-disk blob directory.
func TestUploadDedup(t *testing.T) {
	srv, e := newTestServer(t)
	var refs [2]string
	for i := 0; i < 2; i++ {
		body, contentType := multipartUpload(t, map[string]string{"x.txt": "duplicate"})
		req := httptest.NewRequest(http.MethodPost, "/blobs", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(authTokenHeader, testToken)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("upload %d status = %d", i, w.Code)
		}
		var got []string
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode refs: %v", err)
		}
		refs[i] = got[0]
	}
	if refs[0] != refs[1] {
		t.Fatalf("expected identical references, got %s and %s", refs[0], refs[1])
	}

	count := 0
	err := e.List(context.Background(), func(ref.Reference) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if count != 1 {
		t.Fatalf("on-disk blob count = %d, want 1", count)
	}
}

// TestMultipartPartialFailure exercises the "N parts, one failing
// mid-stream" boundary case of spec.md §8: the second part's body is
// torn off before its closing boundary, simulating a disconnect partway
// through that part. The response still reports the reference for the
// part that committed before the tear.
func TestMultipartPartialFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part1, err := w.CreateFormFile("file", "first.txt")
	if err != nil {
		t.Fatalf("create first part: %v", err)
	}
	if _, err := part1.Write([]byte("first")); err != nil {
		t.Fatalf("write first part: %v", err)
	}
	part2, err := w.CreateFormFile("file", "second.txt")
	if err != nil {
		t.Fatalf("create second part: %v", err)
	}
	if _, err := part2.Write([]byte("second, but torn off")); err != nil {
		t.Fatalf("write second part: %v", err)
	}
	// No w.Close(): the body ends mid-part with no closing boundary,
	// so the second part's content stream is torn.
	contentType := w.FormDataContentType()

	req := httptest.NewRequest(http.MethodPost, "/blobs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(authTokenHeader, testToken)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var refs []string
	if err := json.Unmarshal(rec.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	wantRef := ref.Of([]byte("first")).String()
	if len(refs) != 1 || refs[0] != wantRef {
		t.Fatalf("refs = %v, want only the part committed before the tear [%s]", refs, wantRef)
	}
}

func TestDownloadInvalidReference(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/blobs/"+strings.Repeat("z", 64), nil)
	req.Header.Set(authTokenHeader, testToken)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error != kindInvalidReference {
		t.Errorf("error kind = %q, want %q", errResp.Error, kindInvalidReference)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	absent := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	req := httptest.NewRequest(http.MethodGet, "/blobs/"+absent, nil)
	req.Header.Set(authTokenHeader, testToken)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if errResp.Error != kindNotFound {
		t.Errorf("error kind = %q, want %q", errResp.Error, kindNotFound)
	}
}

// TestDeleteThenGetMissing exercises end-to-end scenario 5.
func TestDeleteThenGetMissing(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, map[string]string{"gone.txt": "ephemeral"})
	req := httptest.NewRequest(http.MethodPost, "/blobs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(authTokenHeader, testToken)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	var refs []string
	if err := json.Unmarshal(w.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	ref := refs[0]

	req = httptest.NewRequest(http.MethodDelete, "/blobs/"+ref, nil)
	req.Header.Set(authTokenHeader, testToken)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/blobs/"+ref, nil)
	req.Header.Set(authTokenHeader, testToken)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get-after-delete status = %d, want 404", w.Code)
	}
}

// TestAuthRequired exercises end-to-end scenario 6: every route but
// /status requires X-Auth-Token.
func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status route without auth = %d, want 200", w.Code)
	}

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/blobs"},
		{http.MethodGet, "/blobs/" + sampleRef},
		{http.MethodHead, "/blobs/" + sampleRef},
		{http.MethodDelete, "/blobs/" + sampleRef},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", c.method, c.path, w.Code)
		}

		req = httptest.NewRequest(c.method, c.path, nil)
		req.Header.Set(authTokenHeader, "wrong-token")
		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with wrong token: status = %d, want 401", c.method, c.path, w.Code)
		}
	}
}

const sampleRef = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestEmptyUploadPart(t *testing.T) {
	srv, _ := newTestServer(t)
	body, contentType := multipartUpload(t, map[string]string{"empty.bin": ""})
	req := httptest.NewRequest(http.MethodPost, "/blobs", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(authTokenHeader, testToken)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var refs []string
	if err := json.Unmarshal(w.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	if len(refs) != 1 || refs[0] != sampleRef {
		t.Fatalf("refs = %v, want [%s]", refs, sampleRef)
	}
}
