package models

import "encoding/json"

// RawTransaction is an enhanced-transaction record as served by the
// transaction source. Amount fields are kept raw so that one bad value
// drops a single sub-entry rather than failing the whole payload.
type RawTransaction struct {
	Signature       string              `json:"signature"`
	Timestamp       int64               `json:"timestamp"` // Unix seconds
	Type            string              `json:"type,omitempty"`
	NativeTransfers []RawNativeTransfer `json:"nativeTransfers"`
	TokenTransfers  []RawTokenTransfer  `json:"tokenTransfers"`
}

// RawNativeTransfer amounts are in lamports
type RawNativeTransfer struct {
	FromUserAccount string          `json:"fromUserAccount"`
	ToUserAccount   string          `json:"toUserAccount"`
	Amount          json.RawMessage `json:"amount"`
}

// RawTokenTransfer amounts are in token units as reported upstream
type RawTokenTransfer struct {
	FromUserAccount string          `json:"fromUserAccount"`
	ToUserAccount   string          `json:"toUserAccount"`
	TokenAmount     json.RawMessage `json:"tokenAmount"`
	Mint            string          `json:"mint"`
}
