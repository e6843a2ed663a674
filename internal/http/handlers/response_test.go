package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-places-market/internal/http/middleware"
	"github.com/tbourn/go-places-market/internal/services"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}

func TestFail_500_LogsAndHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { failErr(c, errors.New("disk on fire")) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	er := decodeError(t, w)
	if er.RequestID != "rid-500" || er.Code != ErrCodeInternal || strings.Contains(er.Message, "disk") {
		t.Fatalf("unexpected body: %+v", er)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, "disk on fire") {
		t.Fatalf("expected logged cause, got: %s", logs)
	}
}

func TestFailErr_KindMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrAlreadyPurchased, http.StatusConflict, ErrCodeConflict},
		{services.ErrSelfPurchase, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrPlaceNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{&services.Error{Kind: services.KindValidation, Msg: "rating must be between 1 and 5"}, http.StatusBadRequest, ErrCodeValidation},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) { failErr(c, tc.err) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != tc.status {
			t.Fatalf("%v: status %d; want %d", tc.err, w.Code, tc.status)
		}
		if er := decodeError(t, w); er.Code != tc.code {
			t.Fatalf("%v: code %q; want %q", tc.err, er.Code, tc.code)
		}
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"n": 1}) })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"n":1`) {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if er := decodeError(t, w); w.Code != http.StatusNotFound || er.Message != "nope" {
		t.Fatalf("Fail: %d %+v", w.Code, er)
	}
}

func TestNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ts := time.Unix(0, 1700000000123456789)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if notModified(c, "places", 3, &ts) {
			return
		}
		c.String(http.StatusOK, "fresh")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag != `W/"places:3:1700000000123456789"` {
		t.Fatalf("first: %d etag=%q", w.Code, etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("conditional: %d %q", w.Code, w.Body.String())
	}
}
