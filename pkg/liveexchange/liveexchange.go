package liveexchange

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
)

// Exchange is the authenticated order-placement boundary against the live
// exchange, described in spec.md §6 as "interface only" — the core uses
// this only when a later live mode is enabled, and the paper engine in
// internal/simexec never calls it.
type Exchange interface {
	GetPositionSize(ctx context.Context, tokenID string) (float64, error)
	MarketSell(ctx context.Context, tokenID string, size float64) error
	GetOrderBook(ctx context.Context, tokenID string) (*OrderBookLevel2, error)
}

// Wallet derives a funder/signer address from a configured private key, for
// use by an Exchange implementation's GetPositionSize/MarketSell calls. It
// performs no signing itself.
type Wallet struct {
	Address common.Address
	privKey *ecdsa.PrivateKey
}

// NewWalletFromHex derives a Wallet from a hex-encoded private key (with or
// without the "0x" prefix), matching the way the orchestrator's
// configuration supplies POLYMARKET_PRIVATE_KEY.
func NewWalletFromHex(hexKey string) (*Wallet, error) {
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected key type")
	}
	return &Wallet{Address: crypto.PubkeyToAddress(*pub), privKey: pk}, nil
}

// OrderBuilder constructs (but does not submit) EIP-712 order structures for
// the live exchange boundary. It exists so the typed interface above has a
// concrete way to produce a SignedOrderJSON; no component in this module
// calls MarketSell/PlaceOrder against a real exchange.
type OrderBuilder struct {
	chainID int64
	wallet  *Wallet
	impl    *builder.ExchangeOrderBuilderImpl
}

// NewOrderBuilder constructs an OrderBuilder for the given chain (Polygon
// mainnet chain id 137) and wallet.
func NewOrderBuilder(chainID int64, wallet *Wallet) *OrderBuilder {
	return &OrderBuilder{
		chainID: chainID,
		wallet:  wallet,
		impl:    builder.NewExchangeOrderBuilderImpl(chainID, nil),
	}
}

// BuildBuyOrder constructs a signed BUY order for tokenID paying makerAmount
// USDC (6-decimal raw string) for takerAmount raw token units. This is
// exercised only by liveexchange_test.go — there is no call site in the
// paper engine.
func (b *OrderBuilder) BuildBuyOrder(tokenID, makerAmount, takerAmount string) (*SignedOrderJSON, error) {
	if b.wallet == nil {
		return nil, fmt.Errorf("order builder has no wallet configured")
	}
	data := &model.OrderData{
		Maker:         b.wallet.Address.Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        b.wallet.Address.Hex(),
		Expiration:    "0",
		SignatureType: model.EOA,
	}
	signed, err := b.impl.BuildSignedOrder(b.wallet.privKey, data, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return &SignedOrderJSON{
		Salt:          signed.Salt.Int64(),
		Maker:         signed.Maker.Hex(),
		Signer:        signed.Signer.Hex(),
		Taker:         signed.Taker.Hex(),
		TokenID:       signed.TokenId.String(),
		MakerAmount:   signed.MakerAmount.String(),
		TakerAmount:   signed.TakerAmount.String(),
		Side:          signed.Side.String(),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		SignatureType: int(model.EOA),
		Signature:     common.Bytes2Hex(signed.Signature),
	}, nil
}
