package space

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pixelforge/internal/domain"
)

var seedEchoPattern = regexp.MustCompile(`Seed used for generation:\s*(\d+)`)

// Media is the normalized outcome extracted from a complete-event payload.
type Media struct {
	URL  string
	Seed *int64
}

// ExtractMedia pulls the result URL and any backend-reported seed out of the
// raw complete-event payload. Payload shapes differ per space: the media may be
// a bare URL string, an object with a url field, or nested one level inside an
// array. A payload without any usable URL is a malformed response.
func ExtractMedia(data json.RawMessage) (*Media, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	media := &Media{}
	walkPayload(decoded, media)
	if media.URL == "" {
		return nil, fmt.Errorf("%w: no result url in payload", domain.ErrMalformedResponse)
	}
	return media, nil
}

func walkPayload(node any, media *Media) {
	switch v := node.(type) {
	case string:
		if media.URL == "" && isHTTPURL(v) {
			media.URL = v
			return
		}
		if media.Seed == nil {
			if seed, ok := parseSeedEcho(v); ok {
				media.Seed = &seed
			}
		}
	case float64:
		// Bare numbers in a positional payload are seed echoes.
		if media.Seed == nil && v == float64(int64(v)) && v >= 0 {
			seed := int64(v)
			media.Seed = &seed
		}
	case []any:
		for _, item := range v {
			walkPayload(item, media)
		}
	case map[string]any:
		for _, key := range []string{"url", "video", "image", "path"} {
			if media.URL != "" {
				break
			}
			if nested, ok := v[key]; ok {
				walkPayload(nested, media)
			}
		}
		if media.Seed == nil {
			if raw, ok := v["seed"]; ok {
				walkPayload(raw, media)
			}
		}
	}
}

// parseSeedEcho converts the literal "Seed used for generation: N" echo into
// the integer N.
func parseSeedEcho(s string) (int64, bool) {
	match := seedEchoPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, false
	}
	seed, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return seed, true
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
