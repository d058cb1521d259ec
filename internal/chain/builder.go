package chain

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
)

// TransferParams describes one checkout transfer.
type TransferParams struct {
	Buyer    solana.PublicKey
	Merchant solana.PublicKey
	Mint     solana.PublicKey
	Amount   uint64 // smallest unit
}

// BuildTransfer builds an unsigned stablecoin transfer from buyer to
// merchant and returns it base64-encoded, ready for the wallet to sign.
// The buyer pays the network fee.
func BuildTransfer(ctx context.Context, conn *Conn, p TransferParams) (string, error) {
	if p.Amount == 0 {
		return "", fmt.Errorf("transfer amount must be positive")
	}

	mintAccount, err := conn.Client.GetAccountInfo(ctx, p.Mint)
	if err != nil {
		return "", fmt.Errorf("failed to get mint account: %w", err)
	}
	if mintAccount == nil || mintAccount.Value == nil {
		return "", fmt.Errorf("mint account %s not found", p.Mint)
	}

	tokenProgramID := mintAccount.Value.Owner
	if tokenProgramID != solana.TokenProgramID && tokenProgramID != solana.Token2022ProgramID {
		return "", fmt.Errorf("asset %s was not created by a known token program", p.Mint)
	}

	var mintData token.Mint
	if err := bin.NewBinDecoder(mintAccount.Value.Data.GetBinary()).Decode(&mintData); err != nil {
		return "", fmt.Errorf("failed to decode mint data: %w", err)
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(p.Buyer, p.Mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive source token account: %w", err)
	}
	destinationATA, _, err := solana.FindAssociatedTokenAddress(p.Merchant, p.Mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	// Both token accounts must already exist; the demo checkout never funds
	// account creation.
	if err := requireAccount(ctx, conn, sourceATA); err != nil {
		return "", fmt.Errorf("buyer holds no token account for %s: %w", p.Mint, err)
	}
	if err := requireAccount(ctx, conn, destinationATA); err != nil {
		return "", fmt.Errorf("merchant holds no token account for %s: %w", p.Mint, err)
	}

	latest, err := conn.Client.GetLatestBlockhash(ctx, confirmCommitment)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	cuLimit, err := computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(transferComputeUnits).
		ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("failed to build compute limit instruction: %w", err)
	}
	cuPrice, err := computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(defaultComputeUnitPrice).
		ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("failed to build compute price instruction: %w", err)
	}
	transferIx, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(p.Amount).
		SetDecimals(mintData.Decimals).
		SetSourceAccount(sourceATA).
		SetMintAccount(p.Mint).
		SetDestinationAccount(destinationATA).
		SetOwnerAccount(p.Buyer).
		ValidateAndBuild()
	if err != nil {
		return "", fmt.Errorf("failed to build transfer instruction: %w", err)
	}

	tx, err := solana.NewTransactionBuilder().
		AddInstruction(cuLimit).
		AddInstruction(cuPrice).
		AddInstruction(transferIx).
		SetRecentBlockHash(latest.Value.Blockhash).
		SetFeePayer(p.Buyer).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	return encoded, nil
}

func requireAccount(ctx context.Context, conn *Conn, account solana.PublicKey) error {
	info, err := conn.Client.GetAccountInfo(ctx, account)
	if err != nil {
		return err
	}
	if info == nil || info.Value == nil {
		return fmt.Errorf("account %s does not exist", account)
	}
	return nil
}
