package rpc

import "encoding/json"

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type submitParams struct {
	Caller      string `json:"caller"`
	Payment     string `json:"payment"`
	Descriptor  string `json:"descriptor"`
	ValidPeriod uint32 `json:"validPeriod"`
}

type submitResult struct {
	ID     uint64      `json:"id"`
	Events []eventJSON `json:"events,omitempty"`
}

type resultParam struct {
	Kind    string `json:"kind"`
	Numeric *int64 `json:"numeric,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

type fulfillParams struct {
	Caller string      `json:"caller"`
	ID     uint64      `json:"id"`
	Target string      `json:"target"`
	Result resultParam `json:"result"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type requestIDParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

type setFeeParams struct {
	Caller string `json:"caller"`
	Fee    string `json:"fee"`
}

type setOracleParams struct {
	Caller string `json:"caller"`
	Oracle string `json:"oracle"`
}

type userParams struct {
	Caller string `json:"caller"`
	User   string `json:"user"`
}

type getRequestParams struct {
	ID uint64 `json:"id"`
}

type requestView struct {
	ID          uint64 `json:"id"`
	Requester   string `json:"requester"`
	Descriptor  string `json:"descriptor"`
	ValidTill   uint64 `json:"validTill"`
	EscrowedFee string `json:"escrowedFee"`
}

type globalView struct {
	Admin          string   `json:"admin"`
	Oracle         string   `json:"oracle"`
	Users          []string `json:"users"`
	Fee            string   `json:"fee"`
	MinValidPeriod uint64   `json:"minValidPeriod"`
	MaxValidPeriod uint64   `json:"maxValidPeriod"`
	NextRequestID  uint64   `json:"nextRequestId"`
	Reserved       string   `json:"reserved"`
}

type priceView struct {
	Price int64 `json:"price"`
	Set   bool  `json:"set"`
}

type eventsResult struct {
	Events []eventJSON `json:"events,omitempty"`
}

type heightResult struct {
	Height uint64 `json:"height"`
}

type advanceParams struct {
	Count uint64 `json:"count"`
}

type creditParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Balance string `json:"balance"`
}
