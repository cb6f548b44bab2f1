package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"
)

const verifyProofSignature = "verifyProof(uint256[2],uint256[2][2],uint256[2],uint256[1])"

// invalidResult is verifyProof's return data for (address(0), false).
var invalidResult = "0x" + strings.Repeat("0", 128)

var verifyProofSelector = selector(verifyProofSignature)

func selector(signature string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// FaultyNode forwards JSON-RPC to a real node and can turn verifyProof
// simulations into rejections or slow every request down.
type FaultyNode struct {
	upstream string
	every    int
	delay    time.Duration
	client   *http.Client
	log      zerolog.Logger

	mu          sync.Mutex
	requests    int
	verifyCalls int
}

func NewFaultyNode(upstream string, every int, delay time.Duration, log zerolog.Logger) *FaultyNode {
	return &FaultyNode{
		upstream: upstream,
		every:    every,
		delay:    delay,
		client:   &http.Client{},
		log:      log,
	}
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type callArgs struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Input string `json:"input"`
}

func (n *FaultyNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error reading request: %v", err), http.StatusBadRequest)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, fmt.Sprintf("Error decoding request: %v", err), http.StatusBadRequest)
		return
	}

	count, invalidate := n.account(req)
	n.log.Debug().Int("request", count).Str("method", req.Method).Msg("received")

	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-r.Context().Done():
			return
		}
	}

	resp, err := n.client.Post(n.upstream, "application/json", bytes.NewReader(body))
	if err != nil {
		http.Error(w, fmt.Sprintf("Error forwarding request: %v", err), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	var upstreamResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&upstreamResp); err != nil {
		http.Error(w, fmt.Sprintf("Error decoding response: %v", err), http.StatusBadGateway)
		return
	}

	if invalidate {
		if _, ok := upstreamResp["result"]; ok {
			n.log.Info().Int("request", count).Msg("rewriting verifyProof result to invalid")
			upstreamResp["result"] = invalidResult
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(upstreamResp); err != nil {
		n.log.Warn().Err(err).Msg("failed to write response")
	}
}

// account counts the request and decides whether its result gets rewritten.
func (n *FaultyNode) account(req rpcRequest) (int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	if n.every <= 0 || !isVerifyProofCall(req) {
		return n.requests, false
	}
	n.verifyCalls++
	return n.requests, n.verifyCalls%n.every == 0
}

func isVerifyProofCall(req rpcRequest) bool {
	if req.Method != "eth_call" || len(req.Params) == 0 {
		return false
	}
	var args callArgs
	if err := json.Unmarshal(req.Params[0], &args); err != nil {
		return false
	}
	data := args.Data
	if data == "" {
		data = args.Input
	}
	return strings.HasPrefix(strings.ToLower(data), verifyProofSelector)
}
