// Package version records the API version of the matched route.
package version

import (
	"net/http"

	id "veriflow/pkg/domain"
	"veriflow/pkg/requestcontext"
)

// ExtractVersion sets the route's API version in the context. Mount it on the
// versioned subrouter:
//
//	r.Route(id.APIVersionV1.Prefix(), func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(id.APIVersionV1))
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithAPIVersion(r.Context(), version)
			w.Header().Set("X-API-Version", version.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
