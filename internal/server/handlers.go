package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"solcheckout/internal/chain"
	"solcheckout/internal/ledger"
	"solcheckout/internal/money"
	"solcheckout/internal/receiptimg"
	"solcheckout/internal/wallet"
)

// product is the descriptor sent with both checkout calls.
type product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (p product) validate() string {
	if p.Name == "" {
		return "product name is required"
	}
	if p.Price <= 0 {
		return "product price must be positive"
	}
	return ""
}

// rawPrice converts the USD price into the token's smallest unit.
func (p product) rawPrice(decimals uint8) (uint64, error) {
	return money.ParseAmount(strconv.FormatFloat(p.Price, 'f', -1, 64), decimals)
}

type initiateRequest struct {
	Buyer   string  `json:"buyer"`
	Product product `json:"product"`
	Mint    string  `json:"mint,omitempty"`
}

type balanceBody struct {
	Mint     string `json:"mint"`
	Amount   string `json:"amount"`
	UIAmount string `json:"uiAmount"`
	Decimals uint8  `json:"decimals"`
}

// handleInitiatePayment resolves the buyer's stablecoin balance, checks
// affordability, and returns a serialized unsigned transfer for the wallet
// to sign.
func (s *Server) handleInitiatePayment(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if msg := req.Product.validate(); msg != "" {
		badRequest(c, msg)
		return
	}
	buyer, err := solana.PublicKeyFromBase58(req.Buyer)
	if err != nil {
		badRequest(c, "invalid buyer address")
		return
	}

	conn, err := s.selector.Acquire(c.Request.Context())
	if err != nil {
		serviceUnavailable(c)
		return
	}

	var balance *chain.Balance
	if req.Mint != "" {
		mint, err := parseMint(req.Mint)
		if err != nil {
			badRequest(c, "invalid mint: must be a registered symbol or a base58 address")
			return
		}
		if !money.IsKnownMint(mint.String()) {
			s.log.Warn("checkout against an unregistered mint",
				zap.String("mint", mint.String()),
				zap.String("buyer", buyer.String()))
		}
		balance, err = s.resolver.ResolveMint(c.Request.Context(), conn, buyer, mint)
		if err != nil {
			serviceUnavailable(c)
			return
		}
	} else {
		balance, err = s.resolver.Resolve(c.Request.Context(), conn, buyer)
		if err != nil {
			serviceUnavailable(c)
			return
		}
	}
	if balance == nil {
		badRequest(c, "buyer holds no stablecoin balance")
		return
	}

	required, err := req.Product.rawPrice(balance.Decimals)
	if err != nil {
		badRequest(c, "invalid price: "+err.Error())
		return
	}
	if balance.Amount < required {
		badRequest(c, "insufficient balance: have "+balance.UIAmount+", need "+money.FormatAmount(required, balance.Decimals))
		return
	}

	encoded, err := chain.BuildTransfer(c.Request.Context(), conn, chain.TransferParams{
		Buyer:    buyer,
		Merchant: s.merchant,
		Mint:     balance.Mint,
		Amount:   required,
	})
	if err != nil {
		badRequest(c, "failed to build transfer: "+err.Error())
		return
	}

	s.metrics.PaymentsInitiated.Inc()
	c.JSON(http.StatusOK, gin.H{
		"transaction": encoded,
		"mint":        balance.Mint.String(),
		"balance": balanceBody{
			Mint:     balance.Mint.String(),
			Amount:   strconv.FormatUint(balance.Amount, 10),
			UIAmount: balance.UIAmount,
			Decimals: balance.Decimals,
		},
	})
}

// parseMint accepts a registered stablecoin symbol ("USDC") or a base58
// mint address.
func parseMint(s string) (solana.PublicKey, error) {
	if sc, ok := money.BySymbol(s); ok {
		return solana.PublicKeyFromBase58(sc.Mint)
	}
	return solana.PublicKeyFromBase58(s)
}

type confirmRequest struct {
	Signature string  `json:"signature"`
	Product   product `json:"product"`
}

// handleConfirmPayment verifies the submitted transaction on-chain and
// records the sale. The fetched transaction must reference the merchant
// address, otherwise the confirmation is rejected regardless of on-chain
// status.
func (s *Server) handleConfirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if msg := req.Product.validate(); msg != "" {
		badRequest(c, msg)
		return
	}
	signature, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		badRequest(c, "invalid transaction signature")
		return
	}

	confirmed, err := s.confirmer.Confirm(c.Request.Context(), signature)
	switch {
	case errors.Is(err, chain.ErrNoEndpoint):
		serviceUnavailable(c)
		return
	case errors.Is(err, chain.ErrMerchantNotInTransaction):
		s.metrics.ConfirmRejections.WithLabelValues("merchant_absent").Inc()
		badRequest(c, "transaction does not pay the merchant")
		return
	case errors.Is(err, chain.ErrTransactionNotFound):
		s.metrics.ConfirmRejections.WithLabelValues("not_found").Inc()
		notFound(c, "transaction not found on chain")
		return
	case err != nil:
		s.internalError(c, err)
		return
	}

	// Receipt image is decorative: a failure never blocks the sale.
	imageURL := ""
	if url, err := s.images.Generate(c.Request.Context(), receiptimg.ReceiptPrompt(req.Product.Name, req.Product.Price)); err != nil {
		s.metrics.ReceiptImageErrors.Inc()
		s.log.Warn("receipt image generation failed", zap.Error(err))
	} else {
		imageURL = url
	}

	timestamp := confirmed.BlockTime
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	receipt := s.ledger.Append(ledger.Receipt{
		Buyer:     confirmed.Buyer.String(),
		Product:   req.Product.Name,
		Amount:    req.Product.Price,
		Signature: req.Signature,
		Timestamp: timestamp,
		ImageURL:  imageURL,
	})

	s.metrics.PaymentsConfirmed.Inc()
	c.JSON(http.StatusOK, gin.H{
		"status":  "confirmed",
		"receipt": receipt,
	})
}

// handleGetTransaction answers from the local ledger first and falls back
// to a simplified on-chain lookup.
func (s *Server) handleGetTransaction(c *gin.Context) {
	sigParam := c.Param("signature")

	if receipt, ok := s.ledger.BySignature(sigParam); ok {
		c.JSON(http.StatusOK, gin.H{
			"source":  "local_database",
			"receipt": receipt,
		})
		return
	}

	signature, err := solana.SignatureFromBase58(sigParam)
	if err != nil {
		badRequest(c, "invalid transaction signature")
		return
	}

	found, err := s.confirmer.Lookup(c.Request.Context(), signature)
	switch {
	case errors.Is(err, chain.ErrNoEndpoint):
		serviceUnavailable(c)
		return
	case errors.Is(err, chain.ErrTransactionNotFound):
		notFound(c, "transaction not found in local_database or blockchain")
		return
	case err != nil:
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source": "blockchain",
		"transaction": gin.H{
			"signature": sigParam,
			"feePayer":  found.Buyer.String(),
			"slot":      found.Slot,
			"blockTime": found.BlockTime,
		},
	})
}

// handleDashboard returns the full ledger snapshot for the merchant UI.
func (s *Server) handleDashboard(c *gin.Context) {
	receipts, totals := s.ledger.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"receipts": receipts,
		"totals":   totals,
	})
}

type deriveRequest struct {
	Provider       string `json:"provider"`
	Subject        string `json:"subject"`
	KeyMaterial    []byte `json:"keyMaterial"` // base64 in JSON
	RevealMnemonic bool   `json:"revealMnemonic,omitempty"`
}

// handleDeriveWallet derives the buyer's checkout keypair from social-login
// key material. Only public data leaves the handler unless the user asks
// for the mnemonic export.
func (s *Server) handleDeriveWallet(c *gin.Context) {
	var req deriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	kp, err := s.deriver.Derive(wallet.Material{
		Provider: req.Provider,
		Subject:  req.Subject,
		Secret:   req.KeyMaterial,
	})
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	body := gin.H{"address": kp.PublicKey.String()}
	if req.RevealMnemonic {
		body["mnemonic"] = kp.Mnemonic
	}
	c.JSON(http.StatusOK, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msg})
}

func serviceUnavailable(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no rpc endpoint available"})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	body := gin.H{"error": "internal server error"}
	if !s.release {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
