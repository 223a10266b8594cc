package scraper

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// pendingResponse tracks a captured request until its body is available.
type pendingResponse struct {
	seq      uint64
	url      string
	status   int
	mimeType string
}

// observeResponses subscribes to the page's Network events and publishes
// every response whose URL matches capture into hub. The subscription is in
// place when observeResponses returns; the returned wait function processes
// events until the page's context is canceled and must run in its own
// goroutine.
//
// Requests are stamped when Network.requestWillBeSent is seen, so a request
// sent before an interaction's mark can never be attributed to it, no matter
// when its response completes. The body is only read after
// Network.loadingFinished; reading it earlier races the transfer.
func observeResponses(page *rod.Page, hub *ResponseHub, capture Predicate, logger *slog.Logger) (wait func()) {
	pending := make(map[proto.NetworkRequestID]*pendingResponse)

	return page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request == nil || !capture(e.Request.URL) {
				return
			}
			pending[e.RequestID] = &pendingResponse{
				seq: hub.Stamp(),
				url: e.Request.URL,
			}
		},
		func(e *proto.NetworkResponseReceived) {
			p, ok := pending[e.RequestID]
			if !ok || e.Response == nil {
				return
			}
			p.status = e.Response.Status
			p.mimeType = e.Response.MIMEType
			if e.Response.URL != "" {
				p.url = e.Response.URL
			}
		},
		func(e *proto.NetworkLoadingFinished) {
			p, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)

			resp := &InterceptedResponse{
				Seq:        p.seq,
				URL:        p.url,
				Status:     p.status,
				MIMEType:   p.mimeType,
				CapturedAt: time.Now(),
			}
			body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(page)
			switch {
			case err != nil:
				resp.Err = fmt.Errorf("read response body: %w", err)
			case body.Base64Encoded:
				resp.Body, resp.Err = base64.StdEncoding.DecodeString(body.Body)
			default:
				resp.Body = []byte(body.Body)
			}
			logger.Debug("detail response captured",
				"seq", resp.Seq,
				"url", resp.URL,
				"status", resp.Status,
				"bytes", len(resp.Body),
			)
			hub.Publish(resp)
		},
		func(e *proto.NetworkLoadingFailed) {
			p, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)
			hub.Publish(&InterceptedResponse{
				Seq:        p.seq,
				URL:        p.url,
				Status:     p.status,
				CapturedAt: time.Now(),
				Err:        fmt.Errorf("request failed: %s", e.ErrorText),
			})
		},
	)
}
