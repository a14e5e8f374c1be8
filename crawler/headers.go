package crawler

import (
	"net/http"

	"github.com/corpix/uarand"
)

// baselineHeaders mimics a regular browser navigation; merged into every
// request before the randomized User-Agent.
var baselineHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "zh-CN,zh;q=0.8,zh-TW;q=0.7,zh-HK;q=0.5,en-US;q=0.3,en;q=0.2",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Sec-Fetch-User":            "?1",
}

// requestHeaders builds the header set for one request: the fixed
// baseline, the site referer, and a freshly randomized User-Agent.
func requestHeaders(referer string) http.Header {
	headers := make(http.Header, len(baselineHeaders)+2)
	for key, value := range baselineHeaders {
		headers.Set(key, value)
	}
	if referer != "" {
		headers.Set("Referer", referer)
	}
	headers.Set("User-Agent", uarand.GetRandom())
	return headers
}
