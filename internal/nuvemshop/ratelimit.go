package nuvemshop

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
)

// rateLimit is the quota state the API reports after each call.
type rateLimit struct {
	Remaining int
	Reset     time.Duration
}

// parseRateLimit reads the quota headers of a response. The structured
// RateLimit field (RFC 8941 dictionary, "remaining"/"r" and "reset"/"t" in
// seconds) takes precedence over the legacy x-rate-limit-* headers, whose
// reset is in milliseconds. ok is false when neither is present.
func parseRateLimit(h http.Header) (rl rateLimit, ok bool) {
	if values := h.Values("RateLimit"); len(values) > 0 {
		if rl, ok := parseStructured(values); ok {
			return rl, true
		}
	}

	remaining := strings.TrimSpace(h.Get("X-Rate-Limit-Remaining"))
	if remaining == "" {
		return rateLimit{}, false
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return rateLimit{}, false
	}
	rl.Remaining = n
	if ms, err := strconv.ParseInt(strings.TrimSpace(h.Get("X-Rate-Limit-Reset")), 10, 64); err == nil && ms > 0 {
		rl.Reset = time.Duration(ms) * time.Millisecond
	}
	return rl, true
}

func parseStructured(values []string) (rateLimit, bool) {
	dict, err := httpsfv.UnmarshalDictionary(values)
	if err != nil {
		return rateLimit{}, false
	}

	remaining, ok := intMember(dict, "remaining", "r")
	if !ok {
		return rateLimit{}, false
	}
	rl := rateLimit{Remaining: int(remaining)}
	if reset, ok := intMember(dict, "reset", "t"); ok && reset > 0 {
		rl.Reset = time.Duration(reset) * time.Second
	}
	return rl, true
}

func intMember(dict *httpsfv.Dictionary, keys ...string) (int64, bool) {
	for _, k := range keys {
		member, ok := dict.Get(k)
		if !ok {
			continue
		}
		item, ok := member.(httpsfv.Item)
		if !ok {
			continue
		}
		if n, ok := item.Value.(int64); ok {
			return n, true
		}
	}
	return 0, false
}
