package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClient implements Client with overridable behavior per method.
// Unconfigured methods fail, so tests only wire what they exercise.
type fakeClient struct {
	blockHeightFn  func(ctx context.Context) (uint64, error)
	versionFn      func(ctx context.Context) (*rpc.GetVersionResult, error)
	accountInfoFn  func(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	tokenBalanceFn func(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error)
	byOwnerFn      func(ctx context.Context, owner solana.PublicKey) (*rpc.GetTokenAccountsResult, error)
	programAcctsFn func(ctx context.Context, program solana.PublicKey) (rpc.GetProgramAccountsResult, error)
	blockhashFn    func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error)
	transactionFn  func(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)

	blockHeightCalls int
	versionCalls     int
	transactionCalls int
}

func (f *fakeClient) GetBlockHeight(ctx context.Context, _ rpc.CommitmentType) (uint64, error) {
	f.blockHeightCalls++
	if f.blockHeightFn == nil {
		return 0, fmt.Errorf("unexpected GetBlockHeight call")
	}
	return f.blockHeightFn(ctx)
}

func (f *fakeClient) GetVersion(ctx context.Context) (*rpc.GetVersionResult, error) {
	f.versionCalls++
	if f.versionFn == nil {
		return nil, fmt.Errorf("unexpected GetVersion call")
	}
	return f.versionFn(ctx)
}

func (f *fakeClient) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if f.accountInfoFn == nil {
		return nil, fmt.Errorf("unexpected GetAccountInfo call")
	}
	return f.accountInfoFn(ctx, account)
}

func (f *fakeClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	if f.tokenBalanceFn == nil {
		return nil, fmt.Errorf("unexpected GetTokenAccountBalance call")
	}
	return f.tokenBalanceFn(ctx, account)
}

func (f *fakeClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, _ *rpc.GetTokenAccountsConfig, _ *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	if f.byOwnerFn == nil {
		return nil, fmt.Errorf("unexpected GetTokenAccountsByOwner call")
	}
	return f.byOwnerFn(ctx, owner)
}

func (f *fakeClient) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, _ *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if f.programAcctsFn == nil {
		return nil, fmt.Errorf("unexpected GetProgramAccounts call")
	}
	return f.programAcctsFn(ctx, program)
}

func (f *fakeClient) GetLatestBlockhash(ctx context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.blockhashFn == nil {
		return nil, fmt.Errorf("unexpected GetLatestBlockhash call")
	}
	return f.blockhashFn(ctx)
}

func (f *fakeClient) GetTransaction(ctx context.Context, sig solana.Signature, _ *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	f.transactionCalls++
	if f.transactionFn == nil {
		return nil, fmt.Errorf("unexpected GetTransaction call")
	}
	return f.transactionFn(ctx, sig)
}

// healthy configures both liveness probes to succeed.
func (f *fakeClient) healthy() *fakeClient {
	f.blockHeightFn = func(context.Context) (uint64, error) { return 1000, nil }
	f.versionFn = func(context.Context) (*rpc.GetVersionResult, error) {
		return &rpc.GetVersionResult{SolanaCore: "2.0.0"}, nil
	}
	return f
}

// fakeDialer hands out preconfigured clients by endpoint and counts dials.
type fakeDialer struct {
	clients map[string]*fakeClient
	dials   []string
}

func (d *fakeDialer) dial(endpoint string) Client {
	d.dials = append(d.dials, endpoint)
	return d.clients[endpoint]
}

// accountData wraps raw account bytes the way the RPC layer delivers them.
func accountData(t *testing.T, raw []byte) (out *rpc.DataBytesOrJSON) {
	t.Helper()
	out = new(rpc.DataBytesOrJSON)
	encoded := `["` + base64.StdEncoding.EncodeToString(raw) + `","base64"]`
	require.NoError(t, json.Unmarshal([]byte(encoded), out))
	return out
}

// transactionResult builds a GetTransactionResult around a real transaction,
// going through JSON the way an RPC response would.
func transactionResult(t *testing.T, tx *solana.Transaction, slot uint64, blockTime int64) *rpc.GetTransactionResult {
	t.Helper()
	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	body := fmt.Sprintf(`{"slot":%d,"blockTime":%d,"transaction":["%s","base64"]}`, slot, blockTime, encoded)
	out := new(rpc.GetTransactionResult)
	require.NoError(t, json.Unmarshal([]byte(body), out))
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
