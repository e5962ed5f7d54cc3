// Package device classifies the caller's User-Agent into device tags that
// feed the rule context ("mobile", "bot", OS and browser names).
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"veriflow/pkg/requestcontext"
)

// Middleware parses the User-Agent header once per request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tags := Classify(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithDeviceTags(r.Context(), tags)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Classify returns lowercase device tags for a User-Agent string. An empty
// User-Agent yields no tags.
func Classify(userAgent string) []string {
	if strings.TrimSpace(userAgent) == "" {
		return nil
	}
	ua := useragent.New(userAgent)

	var tags []string
	if ua.Mobile() {
		tags = append(tags, "mobile")
	} else {
		tags = append(tags, "desktop")
	}
	if ua.Bot() {
		tags = append(tags, "bot")
	}
	if name := normalize(ua.OSInfo().Name); name != "" {
		tags = append(tags, name)
	}
	if browser, _ := ua.Browser(); normalize(browser) != "" {
		tags = append(tags, normalize(browser))
	}
	return tags
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
