// Package liveexchange defines the typed boundary for the authenticated
// live-exchange order-placement path described in spec.md §6 as
// "interface only" — the paper engine never calls it. Wire shapes here
// mirror what an EIP-712-signed CLOB order submission looks like so the
// interface below is concrete enough to implement later. OrderBuilder signs
// orders locally; nothing in this module submits them or holds funds.
package liveexchange

// SignedOrderJSON is the signed-order wire shape the live exchange expects.
// OrderBuilder.BuildBuyOrder fills every field, including Signature.
type SignedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// OrderSubmissionRequest wraps a signed order with submission metadata.
type OrderSubmissionRequest struct {
	Order     SignedOrderJSON `json:"order"`
	Owner     string          `json:"owner"`
	OrderType string          `json:"orderType"`
}

// OrderSubmissionResponse is the exchange's reply to an order submission.
type OrderSubmissionResponse struct {
	Success     bool     `json:"success"`
	ErrorMsg    string   `json:"errorMsg"`
	OrderID     string   `json:"orderId"`
	OrderHashes []string `json:"orderHashes"`
	Status      string   `json:"status"`
}

// OrderBookLevel2 is a shallow level-2 orderbook reply.
type OrderBookLevel2 struct {
	TokenID string              `json:"asset_id"`
	Bids    []OrderBookWireLevel `json:"bids"`
	Asks    []OrderBookWireLevel `json:"asks"`
}

// OrderBookWireLevel is a single raw depth level (string-encoded numerics,
// matching the exchange's wire format).
type OrderBookWireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
