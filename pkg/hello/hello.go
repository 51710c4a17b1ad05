package hello

import (
	"fmt"
	"net/http"
)

// NewHandler returns the greeting handler the hit counter fronts by default.
// It answers every request with the path that was hit.
func NewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "Hello, CDK! You have hit %s\n", r.URL.Path)
	})
}
