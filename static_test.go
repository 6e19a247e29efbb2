package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func TestStaticFS(t *testing.T) {
	fsys := fstest.MapFS{
		"login.css": {Data: []byte(".login_form{}")},
	}
	a := New()
	a.StaticFS("/assets/", fsys)

	t.Run("serves file", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/assets/login.css", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, ".login_form{}", w.Body.String())
	})

	t.Run("directory listing returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/assets/", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing file returns 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/assets/nope.css", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
