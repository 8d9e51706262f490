package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) adminRequest(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+f.admin.AccessToken)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return f.do(r)
}

func TestSectionUpsertShowsOnHome(t *testing.T) {
	f := newFixture(t)

	w := f.adminRequest(http.MethodPut, "/api/admin/sections/hero/fr", "application/json",
		[]byte(`{"title":"  Marees   hautes ","subtitle":"Peintures 2024"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Key  string          `json:"key"`
			Data json.RawMessage `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hero", resp.Data.Key)
	assert.Contains(t, string(resp.Data.Data), `"title":"Marees hautes"`)

	assert.Contains(t, f.get("/fr/").Body.String(), "Marees hautes")
}

func TestSectionUpsertRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown key", "/api/admin/sections/footer/en", `{}`},
		{"unsupported locale", "/api/admin/sections/hero/de", `{"title":"x"}`},
		{"malformed json", "/api/admin/sections/hero/en", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.adminRequest(http.MethodPut, tt.path, "application/json", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func multipartFile(t *testing.T, name string, content []byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), buf.Bytes()
}

func TestUploadSniffsImages(t *testing.T) {
	f := newFixture(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	contentType, body := multipartFile(t, "../../Blue Hour.png", png)
	w := f.adminRequest(http.MethodPost, "/api/admin/uploads", contentType, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			URL         string `json:"url"`
			ContentType string `json:"content_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Data.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(resp.Data.URL, "_Blue-Hour.png"))
	assert.Equal(t, "image/png", resp.Data.ContentType)

	contentType, body = multipartFile(t, "notes.png", []byte("just some text"))
	w = f.adminRequest(http.MethodPost, "/api/admin/uploads", contentType, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
