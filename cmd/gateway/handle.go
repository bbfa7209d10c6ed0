package main

import (
	"context"
	"errors"
	"net/http"

	"semcache/backgroundwriter"
	"semcache/cachedecision"
	"semcache/chatapi"
	"semcache/contentstore"
	"semcache/embedding"
	"semcache/internal/cacheerr"
	"semcache/internal/config"
	"semcache/internal/logging"
	"semcache/responder"
	"semcache/streamtee"
	"semcache/upstream"
	"semcache/vectorindex"

	"github.com/goccy/go-json"
)

// Gateway holds the collaborators the HTTP handler orchestrates as
// explicit fields, so tests can wire doubles without touching any
// process-wide state.
type Gateway struct {
	cfg      config.Config
	log      *logging.Logger
	embedder embedding.Embedder
	index    vectorindex.Index
	store    contentstore.Store
	upstream upstream.Client
	writer   *backgroundwriter.Writer
}

// CompletionHandle serves POST /chat/completions.
func (gw *Gateway) CompletionHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		responder.WriteCORSPreflight(w, r)
		return
	}

	var req chatapi.ChatRequest
	if err := bindJSON(r, &req); err != nil {
		responder.WriteJSONError(w, http.StatusBadRequest, "failed to parse request")
		gw.log.Error("failed to parse request: %s", err)
		return
	}
	if req.Model == "" {
		req.Model = gw.cfg.DefaultModel
	}

	decision, err := cachedecision.Decide(r.Context(), gw.embedder, gw.index, gw.store, req.Messages, req.Model, req.NoCache, gw.cfg.MatchThreshold, gw.log)
	if err != nil {
		gw.log.Error("cache decision failed: %s", err)
		responder.WriteJSONError(w, http.StatusBadGateway, "cache lookup failed")
		return
	}

	if decision.Hit {
		gw.log.Debug("cache hit for model=%s", req.Model)
		if req.Stream {
			if err := responder.WriteStreamingHit(w, decision.Content, req.Model); err != nil {
				gw.log.Warn("failed to stream cached answer: %s", err)
			}
			return
		}
		responder.WriteNonStreamingHit(w, decision.Content, req.Model)
		return
	}

	if req.Stream {
		gw.handleStreamingMiss(w, r, req, decision)
		return
	}
	gw.handleNonStreamingMiss(w, r, req, decision)
}

func (gw *Gateway) handleStreamingMiss(w http.ResponseWriter, r *http.Request, req chatapi.ChatRequest, decision cachedecision.Result) {
	// The upstream fetch is deliberately detached from r.Context(): that
	// context is canceled the instant the client disconnects, and the
	// background path must keep reading upstream after the client is
	// gone. Its own lifetime is bounded by the background deadline
	// instead, and released once the capture finishes.
	upstreamCtx, cancel := context.WithTimeout(context.Background(), gw.cfg.BackgroundDeadline)

	body, err := gw.upstream.CompleteStream(upstreamCtx, req)
	if err != nil {
		cancel()
		gw.forwardUpstreamError(w, err)
		return
	}

	live, capture := streamtee.Tee(body, gw.cfg.CaptureMaxBytes)
	go func() {
		capture.Wait()
		cancel()
	}()

	gw.writer.Submit(backgroundwriter.Job{
		Capture:  capture,
		Vector:   decision.Vector,
		Model:    req.Model,
		OrphanID: decision.OrphanID,
	})

	if err := responder.RelayStreamingMiss(r.Context(), w, live); err != nil {
		gw.log.Debug("client disconnected mid-stream: %s", err)
		live.Close()
	}
}

func (gw *Gateway) handleNonStreamingMiss(w http.ResponseWriter, r *http.Request, req chatapi.ChatRequest, decision cachedecision.Result) {
	result, err := gw.upstream.Complete(r.Context(), req)
	if err != nil {
		gw.forwardUpstreamError(w, err)
		return
	}

	responder.WriteNonStreamingMiss(w, http.StatusOK, result.RawBody)

	gw.writer.Submit(backgroundwriter.Job{
		Content:  result.Content,
		Vector:   decision.Vector,
		Model:    req.Model,
		OrphanID: decision.OrphanID,
	})
}

func (gw *Gateway) forwardUpstreamError(w http.ResponseWriter, err error) {
	var statusErr *cacheerr.UpstreamStatusError
	if errors.As(err, &statusErr) && statusErr.Is4xx() {
		responder.WriteNonStreamingMiss(w, statusErr.StatusCode, statusErr.Body)
		return
	}
	gw.log.Error("upstream call failed: %s", err)
	responder.WriteJSONError(w, http.StatusBadGateway, "upstream request failed")
}

func bindJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
