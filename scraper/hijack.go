package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps resource type names from configuration to CDP types.
// Only types that never carry item data are blockable.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// adDomains are ad, analytics and session-replay hosts. Their beacons are
// the bulk of the background traffic a storefront emits while items are
// clicked.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"connect.facebook.net":  {},
	"analytics.tiktok.com":  {},
	"bat.bing.com":          {},
	"criteo.com":            {},
	"hotjar.com":            {},
	"fullstory.com":         {},
	"mixpanel.com":          {},
	"amplitude.com":         {},
	"segment.io":            {},
	"segment.com":           {},
	"braze.com":             {},
	"branch.io":             {},
	"sentry.io":             {},
	"newrelic.com":          {},
	"nr-data.net":           {},
	"datadoghq.com":         {},
	"optimizely.com":        {},
	"scorecardresearch.com": {},
}

// isAdDomain checks if a hostname (or any parent domain) is in the ad blocklist.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	// Check exact match first.
	if _, ok := adDomains[host]; ok {
		return true
	}
	// Check parent domains (e.g., "pagead2.googlesyndication.com" → "googlesyndication.com").
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := adDomains[host]; ok {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor that fails the configured
// resource types and, when blockAds is set, requests to known ad and
// tracking domains. Requests matching keep are never blocked.
//
// Interception runs on the Fetch domain. On some Chromium versions it does
// not mix well with Network event capture, which is why nothing is blocked
// unless configured.
//
// Returns the running HijackRouter so the caller can Stop it, or nil if
// there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool, keep Predicate) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()

	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		reqURL := ctx.Request.URL().String()
		if keep != nil && keep(reqURL) {
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}

		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if blockAds {
			if u, err := url.Parse(reqURL); err == nil && isAdDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks until router.Stop().
	go router.Run()

	return router
}
