// Package rpc exposes the broker node over JSON-RPC 2.0. Mutating methods
// require a bearer token; read methods are open.
package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strings"

	"pqlchain/core"
	"pqlchain/core/types"
	"pqlchain/crypto"
	"pqlchain/native/oracle"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20

	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
)

// Server handles JSON-RPC requests against a broker node.
type Server struct {
	node      *core.Node
	authToken string
}

// NewServer builds a server over the node. The bearer token is read from the
// PQL_RPC_TOKEN environment variable; when unset, mutating methods refuse all
// callers.
func NewServer(node *core.Node) *Server {
	return &Server{node: node, authToken: os.Getenv("PQL_RPC_TOKEN")}
}

// SetAuthToken overrides the token loaded at construction.
func (s *Server) SetAuthToken(token string) { s.authToken = token }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, 0, codeInvalidRequest, "unable to read request body")
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, 0, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, codeInvalidRequest, "unsupported JSON-RPC version")
		return
	}

	switch req.Method {
	case "oracle_submit":
		s.requireAuth(w, r, req, s.handleSubmit)
	case "oracle_fulfill":
		s.requireAuth(w, r, req, s.handleFulfill)
	case "oracle_claimRewards":
		s.requireAuth(w, r, req, s.handleClaimRewards)
	case "oracle_clearExpired":
		s.requireAuth(w, r, req, s.handleClearExpired)
	case "oracle_setFee":
		s.requireAuth(w, r, req, s.handleSetFee)
	case "oracle_setOracle":
		s.requireAuth(w, r, req, s.handleSetOracle)
	case "oracle_addUser":
		s.requireAuth(w, r, req, s.handleAddUser)
	case "oracle_removeUser":
		s.requireAuth(w, r, req, s.handleRemoveUser)
	case "oracle_getRequest":
		s.handleGetRequest(w, req)
	case "oracle_getGlobal":
		s.handleGetGlobal(w, req)
	case "pricefeed_latest":
		s.handlePriceLatest(w, req)
	case "chain_height":
		writeResult(w, req.ID, heightResult{Height: s.node.Height()})
	case "chain_advance":
		s.requireAuth(w, r, req, s.handleAdvance)
	case "dev_credit":
		s.requireAuth(w, r, req, s.handleCredit)
	case "ledger_getBalance":
		s.handleGetBalance(w, req)
	default:
		writeError(w, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request, req RPCRequest, handler func(http.ResponseWriter, RPCRequest)) {
	if s.authToken == "" {
		writeError(w, req.ID, codeUnauthorized, "rpc auth token not configured")
		return
	}
	header := r.Header.Get("Authorization")
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		writeError(w, req.ID, codeUnauthorized, "missing bearer token")
		return
	}
	presented := strings.TrimPrefix(header, scheme)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.authToken)) != 1 {
		writeError(w, req.ID, codeUnauthorized, "invalid bearer token")
		return
	}
	handler(w, req)
}

func decodeParams(req RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one params object, got %d", len(req.Params))
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Array(), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func parseDescriptor(value string) ([32]byte, error) {
	var descriptor [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return descriptor, fmt.Errorf("invalid descriptor: %w", err)
	}
	if len(raw) != len(descriptor) {
		return descriptor, fmt.Errorf("descriptor must be %d bytes, got %d", len(descriptor), len(raw))
	}
	copy(descriptor[:], raw)
	return descriptor, nil
}

func parseResult(param resultParam) (oracle.Result, error) {
	switch param.Kind {
	case "numeric":
		if param.Numeric == nil {
			return oracle.Result{}, errors.New("numeric result requires a numeric value")
		}
		return oracle.NumericResult(*param.Numeric), nil
	case "raw":
		raw, err := hex.DecodeString(strings.TrimPrefix(param.Raw, "0x"))
		if err != nil {
			return oracle.Result{}, fmt.Errorf("invalid raw result: %w", err)
		}
		var payload [32]byte
		if len(raw) != len(payload) {
			return oracle.Result{}, fmt.Errorf("raw result must be %d bytes, got %d", len(payload), len(raw))
		}
		copy(payload[:], raw)
		return oracle.RawBytesResult(payload), nil
	default:
		return oracle.Result{}, fmt.Errorf("unknown result kind %q", param.Kind)
	}
}

func eventsToJSON(evts []*types.Event) []eventJSON {
	out := make([]eventJSON, 0, len(evts))
	for _, evt := range evts {
		out = append(out, eventJSON{Type: evt.Type, Attributes: evt.Attributes})
	}
	return out
}

func (s *Server) handleSubmit(w http.ResponseWriter, req RPCRequest) {
	var params submitParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	payment, err := parseAmount(params.Payment)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	descriptor, err := parseDescriptor(params.Descriptor)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	id, evts, err := s.node.SubmitRequest(caller, payment, descriptor, params.ValidPeriod)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, submitResult{ID: id, Events: eventsToJSON(evts)})
}

func (s *Server) handleFulfill(w http.ResponseWriter, req RPCRequest) {
	var params fulfillParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	target, err := parseAddress(params.Target)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	result, err := parseResult(params.Result)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := s.node.Fulfill(caller, params.ID, target, result)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, req RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := s.node.ClaimRewards(caller)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleClearExpired(w http.ResponseWriter, req RPCRequest) {
	var params requestIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := s.node.ClearExpired(caller, params.ID)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleSetFee(w http.ResponseWriter, req RPCRequest) {
	var params setFeeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	fee, err := parseAmount(params.Fee)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := s.node.SetFee(caller, fee)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleSetOracle(w http.ResponseWriter, req RPCRequest) {
	var params setOracleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	next, err := parseAddress(params.Oracle)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := s.node.SetOracle(caller, next)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleAddUser(w http.ResponseWriter, req RPCRequest) {
	s.handleUserChange(w, req, s.node.AddUser)
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, req RPCRequest) {
	s.handleUserChange(w, req, s.node.RemoveUser)
}

func (s *Server) handleUserChange(w http.ResponseWriter, req RPCRequest, apply func([20]byte, [20]byte) ([]*types.Event, error)) {
	var params userParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	user, err := parseAddress(params.User)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	evts, err := apply(caller, user)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, eventsResult{Events: eventsToJSON(evts)})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, req RPCRequest) {
	var params getRequestParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	record, ok, err := s.node.GetRequest(params.ID)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, requestView{
		ID:          record.ID,
		Requester:   crypto.MustNewAddress(record.Requester[:]).String(),
		Descriptor:  "0x" + hex.EncodeToString(record.Descriptor[:]),
		ValidTill:   record.ValidTill,
		EscrowedFee: record.EscrowedFee.String(),
	})
}

func (s *Server) handleGetGlobal(w http.ResponseWriter, req RPCRequest) {
	global, err := s.node.Global()
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	users := make([]string, 0, len(global.Users))
	for _, user := range global.Users {
		users = append(users, crypto.MustNewAddress(user[:]).String())
	}
	writeResult(w, req.ID, globalView{
		Admin:          crypto.MustNewAddress(global.Admin[:]).String(),
		Oracle:         crypto.MustNewAddress(global.Oracle[:]).String(),
		Users:          users,
		Fee:            global.FeeWei.String(),
		MinValidPeriod: global.MinValidPeriod,
		MaxValidPeriod: global.MaxValidPeriod,
		NextRequestID:  global.NextRequestID,
		Reserved:       global.Reserved.String(),
	})
}

func (s *Server) handlePriceLatest(w http.ResponseWriter, req RPCRequest) {
	price, set := s.node.PriceFeed().Latest()
	writeResult(w, req.ID, priceView{Price: price, Set: set})
}

func (s *Server) handleAdvance(w http.ResponseWriter, req RPCRequest) {
	var params advanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	writeResult(w, req.ID, heightResult{Height: s.node.AdvanceBlocks(params.Count)})
}

func (s *Server) handleCredit(w http.ResponseWriter, req RPCRequest) {
	var params creditParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	if err := s.node.Credit(addr, amount); err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, req RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}
	balance, err := s.node.GetBalance(addr)
	if err != nil {
		writeError(w, req.ID, codeServerError, err.Error())
		return
	}
	writeResult(w, req.ID, balanceResult{Balance: balance.String()})
}

func writeResult(w http.ResponseWriter, id int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}})
}
