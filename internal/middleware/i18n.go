package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey is the context key under which the detected locale is stored.
var LocaleKey = localeContextKey{}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

var supportedLocales = []language.Tag{
	language.English,
	language.SimplifiedChinese,
	language.Japanese,
	language.Korean,
	language.Spanish,
	language.Portuguese,
	language.German,
	language.French,
	language.Russian,
	language.Indonesian,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var countryLocales = map[string]string{
	"CN": "zh", "TW": "zh", "HK": "zh",
	"JP": "ja", "KR": "ko",
	"ES": "es", "MX": "es", "AR": "es",
	"BR": "pt", "PT": "pt",
	"DE": "de", "AT": "de",
	"FR": "fr", "RU": "ru", "ID": "id",
}

// I18N detects the requester's locale from explicit headers, Accept-Language,
// or a GeoIP country lookup, and stores it in the request context. The locale
// drives the target language of prompt translation.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the locale stored by I18N, defaulting to English.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return "en"
}

func detectLocale(r *http.Request, fallback string, lookup CountryLookup) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			return matchLocale(tag)
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			return matchLocale(tags...)
		}
	}
	if lookup != nil {
		if ip := ClientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil {
				if locale, ok := countryLocales[strings.ToUpper(country)]; ok {
					return locale
				}
			}
		}
	}
	return fallback
}

func matchLocale(tags ...language.Tag) string {
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return "en"
	}
	base, _ := supportedLocales[idx].Base()
	return base.String()
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
