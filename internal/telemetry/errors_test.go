package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorReportingHandler(t *testing.T) {
	t.Run("http error sets status", func(t *testing.T) {
		h := NewErrorReportingHandler(func(w http.ResponseWriter, r *http.Request) error {
			return NewHTTPError(errors.New("nope"), http.StatusTeapot)
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
		require.Contains(t, rec.Body.String(), "nope")
	})

	t.Run("handler response is kept", func(t *testing.T) {
		h := NewErrorReportingHandler(func(w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusBadGateway)
			return errors.New("already answered")
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("no error", func(t *testing.T) {
		h := NewErrorReportingHandler(func(w http.ResponseWriter, r *http.Request) error {
			w.Write([]byte("ok"))
			return nil
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", rec.Body.String())
	})
}
