package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/prometheus/client_golang/prometheus"

	"solana-nft-indexer/internal/auctionhouse"
	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/solana"
	"solana-nft-indexer/internal/storage"
	"solana-nft-indexer/internal/storage/memory"
)

// Anchor discriminators of the auction house program, sha256("global:<name>")[0:8].
var (
	testSellDisc        = []byte{51, 230, 133, 164, 1, 127, 131, 173}
	testBuyDisc         = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	testExecuteSaleDisc = []byte{37, 74, 217, 157, 79, 49, 35, 6}
	testCancelDisc      = []byte{232, 219, 223, 41, 219, 236, 220, 190}
)

type testSellArgs struct {
	TradeStateBump      uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type testBuyArgs struct {
	TradeStateBump    uint8
	EscrowPaymentBump uint8
	BuyerPrice        uint64
	TokenSize         uint64
}

type testExecuteSaleArgs struct {
	EscrowPaymentBump   uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

type testCancelArgs struct {
	BuyerPrice uint64
	TokenSize  uint64
}

func instructionData(t *testing.T, disc []byte, args interface{}) string {
	t.Helper()
	payload, err := borsh.Serialize(args)
	if err != nil {
		t.Fatalf("serialize args: %v", err)
	}
	return base58.Encode(append(append([]byte{}, disc...), payload...))
}

// programTx builds a transaction with a single auction house instruction
// over the given ordered account list.
func programTx(sig string, slot int64, blockTime int64, accounts []string, data string) *solana.Transaction {
	keys := append(append([]string{}, accounts...), auctionhouse.ProgramID)
	idx := make([]int, len(accounts))
	for i := range idx {
		idx[i] = i
	}
	return &solana.Transaction{
		Slot:      slot,
		Signature: sig,
		BlockTime: blockTime,
		Meta:      &solana.TransactionMeta{},
		Message: &solana.TransactionMessage{
			AccountKeys: keys,
			Instructions: []solana.CompiledInstr{{
				ProgramIDIndex: len(accounts),
				Accounts:       idx,
				Data:           data,
			}},
		},
	}
}

func sellAccountList(maker, tokenAccount, house string) []string {
	accounts := make([]string, 12)
	for i := range accounts {
		accounts[i] = "filler"
	}
	accounts[0] = maker
	accounts[1] = tokenAccount
	accounts[4] = house
	return accounts
}

func buyAccountList(maker, tokenAccount, house string) []string {
	accounts := make([]string, 9)
	for i := range accounts {
		accounts[i] = "filler"
	}
	accounts[0] = maker
	accounts[4] = tokenAccount
	accounts[8] = house
	return accounts
}

func executeSaleAccountList(buyer, seller, tokenAccount, mint, house string) []string {
	accounts := make([]string, 11)
	for i := range accounts {
		accounts[i] = "filler"
	}
	accounts[0] = buyer
	accounts[1] = seller
	accounts[2] = tokenAccount
	accounts[3] = mint
	accounts[5] = "treasury"
	accounts[10] = house
	return accounts
}

func cancelAccountList(owner, tokenAccount, mint, house string) []string {
	accounts := make([]string, 5)
	for i := range accounts {
		accounts[i] = "filler"
	}
	accounts[0] = owner
	accounts[1] = tokenAccount
	accounts[2] = mint
	accounts[4] = house
	return accounts
}

type fakeActivityStore struct {
	archived []domain.ExecuteSaleRecord
}

func (f *fakeActivityStore) Archive(_ context.Context, records []domain.ExecuteSaleRecord) error {
	f.archived = append(f.archived, records...)
	return nil
}

func (f *fakeActivityStore) FindByMint(_ context.Context, mint string, _, _ *time.Time) ([]domain.ExecuteSaleRecord, error) {
	var out []domain.ExecuteSaleRecord
	for _, r := range f.archived {
		if r.Mint == mint {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ storage.TradeActivityStore = (*fakeActivityStore)(nil)

type processorEnv struct {
	records    *memory.OrderRecordStore
	orders     *memory.OrderStore
	tokens     *memory.TokenStore
	activities *fakeActivityStore
	processor  *Processor
}

func newProcessorEnv(t *testing.T, filter *TokenFilter) *processorEnv {
	t.Helper()
	env := &processorEnv{
		records:    memory.NewOrderRecordStore(),
		orders:     memory.NewOrderStore(),
		tokens:     memory.NewTokenStore(),
		activities: &fakeActivityStore{},
	}
	env.processor = NewProcessor(ProcessorOptions{
		Records:    env.records,
		Orders:     env.orders,
		Tokens:     env.tokens,
		Activities: env.activities,
		Filter:     filter,
		Registerer: prometheus.NewRegistry(),
	})
	return env
}

const testBlockTime = int64(1_700_000_000)

func TestProcessor_SellCreatesActiveOrder(t *testing.T) {
	env := newProcessorEnv(t, nil)
	ctx := context.Background()

	data := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	tx := programTx("sig1", 100, testBlockTime, sellAccountList("maker1", "tokacc1", "house1"), data)

	n, err := env.processor.ProcessTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("ProcessTransaction() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ingested %d records, want 1", n)
	}

	records, err := env.records.GetByAuctionHouse(ctx, "house1")
	if err != nil {
		t.Fatalf("GetByAuctionHouse() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("stored %d records, want 1", len(records))
	}

	id := domain.OrderID("house1", "maker1", "tokacc1", domain.OrderSideSell)
	order, err := env.orders.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID(%q) error = %v", id, err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Errorf("Status = %s, want ACTIVE", order.Status)
	}
	if order.Price != 1500 {
		t.Errorf("Price = %d, want 1500", order.Price)
	}
	if order.Mint != nil {
		t.Errorf("Mint = %v, want nil before resolution", *order.Mint)
	}
}

func TestProcessor_ExecuteSaleSettlesOrders(t *testing.T) {
	env := newProcessorEnv(t, nil)
	ctx := context.Background()

	sell := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig1", 100, testBlockTime, sellAccountList("seller1", "tokacc1", "house1"), sell)); err != nil {
		t.Fatalf("process sell: %v", err)
	}

	buy := instructionData(t, testBuyDisc, testBuyArgs{BuyerPrice: 1500, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig2", 101, testBlockTime+10, buyAccountList("buyer1", "tokacc1", "house1"), buy)); err != nil {
		t.Fatalf("process buy: %v", err)
	}

	sale := instructionData(t, testExecuteSaleDisc, testExecuteSaleArgs{BuyerPrice: 1500, TokenSize: 1})
	n, err := env.processor.ProcessTransaction(ctx,
		programTx("sig3", 102, testBlockTime+20, executeSaleAccountList("buyer1", "seller1", "tokacc1", "mint1", "house1"), sale))
	if err != nil {
		t.Fatalf("process execute sale: %v", err)
	}
	if n != 2 {
		t.Fatalf("ingested %d records, want 2 (one per side)", n)
	}

	sellOrder, err := env.orders.GetByID(ctx, domain.OrderID("house1", "seller1", "tokacc1", domain.OrderSideSell))
	if err != nil {
		t.Fatalf("load sell order: %v", err)
	}
	if sellOrder.Status != domain.OrderStatusFilled {
		t.Errorf("sell order Status = %s, want FILLED", sellOrder.Status)
	}
	if sellOrder.Mint == nil || *sellOrder.Mint != "mint1" {
		t.Errorf("sell order Mint = %v, want mint1", sellOrder.Mint)
	}

	buyOrder, err := env.orders.GetByID(ctx, domain.OrderID("house1", "buyer1", "tokacc1", domain.OrderSideBuy))
	if err != nil {
		t.Fatalf("load buy order: %v", err)
	}
	if buyOrder.Status != domain.OrderStatusFilled {
		t.Errorf("buy order Status = %s, want FILLED", buyOrder.Status)
	}

	if len(env.activities.archived) != 2 {
		t.Errorf("archived %d activities, want 2", len(env.activities.archived))
	}

	token, err := env.tokens.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if !token.UpdatedAt.Equal(time.Unix(testBlockTime+20, 0).UTC()) {
		t.Errorf("token UpdatedAt = %v, want sale block time", token.UpdatedAt)
	}
}

func TestProcessor_CancelClosesOrder(t *testing.T) {
	env := newProcessorEnv(t, nil)
	ctx := context.Background()

	sell := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig1", 100, testBlockTime, sellAccountList("owner1", "tokacc1", "house1"), sell)); err != nil {
		t.Fatalf("process sell: %v", err)
	}

	cancel := instructionData(t, testCancelDisc, testCancelArgs{BuyerPrice: 1500, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig2", 101, testBlockTime+10, cancelAccountList("owner1", "tokacc1", "mint1", "house1"), cancel)); err != nil {
		t.Fatalf("process cancel: %v", err)
	}

	order, err := env.orders.GetByID(ctx, domain.OrderID("house1", "owner1", "tokacc1", domain.OrderSideSell))
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", order.Status)
	}
	if order.Mint == nil || *order.Mint != "mint1" {
		t.Errorf("Mint = %v, want mint1 after cancel resolves it", order.Mint)
	}
}

func TestProcessor_CancelAtDifferentPriceIgnored(t *testing.T) {
	env := newProcessorEnv(t, nil)
	ctx := context.Background()

	sell := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig1", 100, testBlockTime, sellAccountList("owner1", "tokacc1", "house1"), sell)); err != nil {
		t.Fatalf("process sell: %v", err)
	}

	cancel := instructionData(t, testCancelDisc, testCancelArgs{BuyerPrice: 900, TokenSize: 1})
	if _, err := env.processor.ProcessTransaction(ctx,
		programTx("sig2", 101, testBlockTime+10, cancelAccountList("owner1", "tokacc1", "mint1", "house1"), cancel)); err != nil {
		t.Fatalf("process cancel: %v", err)
	}

	order, err := env.orders.GetByID(ctx, domain.OrderID("house1", "owner1", "tokacc1", domain.OrderSideSell))
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Errorf("Status = %s, want ACTIVE (price mismatch)", order.Status)
	}
}

func TestProcessor_FailedTransactionSkipped(t *testing.T) {
	env := newProcessorEnv(t, nil)

	data := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	tx := programTx("sig1", 100, testBlockTime, sellAccountList("maker1", "tokacc1", "house1"), data)
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	n, err := env.processor.ProcessTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("ProcessTransaction() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("ingested %d records from a failed tx, want 0", n)
	}
}

func TestProcessor_OtherProgramIgnored(t *testing.T) {
	env := newProcessorEnv(t, nil)

	data := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	tx := programTx("sig1", 100, testBlockTime, sellAccountList("maker1", "tokacc1", "house1"), data)
	tx.Message.AccountKeys[len(tx.Message.AccountKeys)-1] = "SomeOtherProgram11111111111111111111111111"

	n, err := env.processor.ProcessTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("ProcessTransaction() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("ingested %d records, want 0", n)
	}
}

func TestProcessor_BlacklistedMintFiltered(t *testing.T) {
	env := newProcessorEnv(t, NewTokenFilter([]string{"mint1"}))
	ctx := context.Background()

	sale := instructionData(t, testExecuteSaleDisc, testExecuteSaleArgs{BuyerPrice: 1500, TokenSize: 1})
	n, err := env.processor.ProcessTransaction(ctx,
		programTx("sig1", 100, testBlockTime, executeSaleAccountList("buyer1", "seller1", "tokacc1", "mint1", "house1"), sale))
	if err != nil {
		t.Fatalf("ProcessTransaction() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("ingested %d records, want 0", n)
	}
	if len(env.activities.archived) != 0 {
		t.Errorf("archived %d activities for a blacklisted mint, want 0", len(env.activities.archived))
	}
}

func TestProcessor_ReplayIsIdempotent(t *testing.T) {
	env := newProcessorEnv(t, nil)
	ctx := context.Background()

	data := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	tx := programTx("sig1", 100, testBlockTime, sellAccountList("maker1", "tokacc1", "house1"), data)

	for i := 0; i < 2; i++ {
		if _, err := env.processor.ProcessTransaction(ctx, tx); err != nil {
			t.Fatalf("ProcessTransaction() run %d error = %v", i+1, err)
		}
	}

	records, err := env.records.GetByAuctionHouse(ctx, "house1")
	if err != nil {
		t.Fatalf("GetByAuctionHouse() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("stored %d records after replay, want 1", len(records))
	}
}

func TestProcessor_ShortAccountListFails(t *testing.T) {
	env := newProcessorEnv(t, nil)

	// Legacy sell layout decodes with a short account list, but the list
	// is still too short for the mapper's account roles.
	data := instructionData(t, testSellDisc, struct {
		TradeStateBump      uint8
		ProgramAsSignerBump uint8
		BuyerPrice          uint64
		TokenSize           uint64
	}{BuyerPrice: 42, TokenSize: 1})
	tx := programTx("sig1", 100, testBlockTime, []string{"maker1", "tokacc1", "x", "y"}, data)

	_, err := env.processor.ProcessTransaction(context.Background(), tx)
	if !errors.Is(err, auctionhouse.ErrAccountsOutOfRange) {
		t.Fatalf("error = %v, want ErrAccountsOutOfRange", err)
	}
}

func TestProcessor_ProcessBlock(t *testing.T) {
	env := newProcessorEnv(t, nil)

	data := instructionData(t, testSellDisc, testSellArgs{BuyerPrice: 1500, TokenSize: 1})
	blockTime := testBlockTime
	block := &solana.Block{
		Slot:      100,
		BlockTime: &blockTime,
		Transactions: []solana.Transaction{
			*programTx("sig1", 100, testBlockTime, sellAccountList("maker1", "tokaccA", "house1"), data),
			*programTx("sig2", 100, testBlockTime, sellAccountList("maker2", "tokaccB", "house1"), data),
		},
	}

	n, err := env.processor.ProcessBlock(context.Background(), block)
	if err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("ingested %d records, want 2", n)
	}
}
