package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/drblury/lambdaflow"
)

// pendingInvocation is one queued event waiting to travel through a function
// process: handed out on invocation/next, completed by the response or error
// post.
type pendingInvocation struct {
	id      string
	payload []byte
	done    chan invocationResult
}

type invocationResult struct {
	response  []byte
	errorType string
	errorDoc  []byte
}

// emulator implements the slice of the Runtime API a function binary built
// with this library talks to, plus an /invoke endpoint for feeding events in.
type emulator struct {
	conf   *runnerConfig
	logger lambdaflow.ServiceLogger

	queue chan *pendingInvocation

	mu       sync.Mutex
	inflight map[string]*pendingInvocation
}

func newEmulator(conf *runnerConfig, logger lambdaflow.ServiceLogger) *emulator {
	return &emulator{
		conf:     conf,
		logger:   logger,
		queue:    make(chan *pendingInvocation, 64),
		inflight: map[string]*pendingInvocation{},
	}
}

func (e *emulator) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2018-06-01/runtime/invocation/next", e.nextInvocation)
	mux.HandleFunc("POST /2018-06-01/runtime/invocation/{id}/response", e.postResponse)
	mux.HandleFunc("POST /2018-06-01/runtime/invocation/{id}/error", e.postError)
	mux.HandleFunc("POST /2018-06-01/runtime/init/error", e.postInitError)
	mux.HandleFunc("POST /invoke", e.enqueue)
	return mux
}

// nextInvocation blocks until an event is queued, the way the real control
// plane parks the poll.
func (e *emulator) nextInvocation(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
		return
	case p := <-e.queue:
		e.mu.Lock()
		e.inflight[p.id] = p
		e.mu.Unlock()

		deadline := time.Now().Add(e.conf.Timeout).UnixMilli()
		w.Header().Set("Lambda-Runtime-Aws-Request-Id", p.id)
		w.Header().Set("Lambda-Runtime-Deadline-Ms", strconv.FormatInt(deadline, 10))
		w.Header().Set("Lambda-Runtime-Invoked-Function-Arn", e.conf.arn())
		w.Header().Set("Content-Type", "application/json")
		w.Write(p.payload)

		e.logger.Debug("Dispatched invocation", lambdaflow.LogFields{"request_id": p.id})
	}
}

func (e *emulator) postResponse(w http.ResponseWriter, r *http.Request) {
	e.complete(w, r, func(body []byte) invocationResult {
		return invocationResult{response: body}
	})
}

func (e *emulator) postError(w http.ResponseWriter, r *http.Request) {
	errorType := r.Header.Get("Lambda-Runtime-Function-Error-Type")
	e.complete(w, r, func(body []byte) invocationResult {
		return invocationResult{errorType: errorType, errorDoc: body}
	})
}

func (e *emulator) complete(w http.ResponseWriter, r *http.Request, build func([]byte) invocationResult) {
	id := r.PathValue("id")

	e.mu.Lock()
	p, ok := e.inflight[id]
	delete(e.inflight, id)
	e.mu.Unlock()

	if !ok {
		http.Error(w, fmt.Sprintf("unknown request id %s", id), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.done <- build(body)
	w.WriteHeader(http.StatusAccepted)
}

func (e *emulator) postInitError(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	e.logger.Error("Function reported an init error", nil,
		lambdaflow.LogFields{"error_type": r.Header.Get("Lambda-Runtime-Function-Error-Type"), "doc": string(body)})
	w.WriteHeader(http.StatusAccepted)
}

// invokeReply is what /invoke returns to the caller once the function posts
// a result.
type invokeReply struct {
	RequestID string          `json:"requestId"`
	Status    string          `json:"status"`
	Response  json.RawMessage `json:"response,omitempty"`
	ErrorType string          `json:"errorType,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

func (e *emulator) enqueue(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	p := &pendingInvocation{
		id:      lambdaflow.CreateULID(),
		payload: payload,
		done:    make(chan invocationResult, 1),
	}

	select {
	case e.queue <- p:
	default:
		http.Error(w, "invocation queue is full", http.StatusTooManyRequests)
		return
	}

	select {
	case <-r.Context().Done():
		return
	case <-time.After(e.conf.Timeout):
		http.Error(w, "function did not respond before the deadline", http.StatusGatewayTimeout)
	case res := <-p.done:
		reply := invokeReply{RequestID: p.id, Status: "ok", Response: res.response}
		if res.errorType != "" || res.errorDoc != nil {
			reply = invokeReply{RequestID: p.id, Status: "error", ErrorType: res.errorType, Error: res.errorDoc}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := lambdaflow.Encode(w, reply); err != nil {
			e.logger.Error("Failed to write invoke reply", err, nil)
		}
	}
}
