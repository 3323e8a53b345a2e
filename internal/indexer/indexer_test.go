package indexer_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/atmx/aco-indexer/internal/calldata"
	"github.com/atmx/aco-indexer/internal/chain"
	"github.com/atmx/aco-indexer/internal/chain/chaintest"
	"github.com/atmx/aco-indexer/internal/config"
	"github.com/atmx/aco-indexer/internal/indexer"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/resolver"
	"github.com/atmx/aco-indexer/internal/situation"
	"github.com/atmx/aco-indexer/internal/store"
)

var (
	eth        = chain.ZeroAddress
	acoAddr    = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	poolAddr   = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	writer     = common.HexToAddress("0x0000000000000000000000000000000000000b03")
	writer2    = common.HexToAddress("0x0000000000000000000000000000000000000b04")
	buyer      = common.HexToAddress("0x0000000000000000000000000000000000000b05")
	maker      = common.HexToAddress("0x0000000000000000000000000000000000000b06")
	strategy   = common.HexToAddress("0x0000000000000000000000000000000000000b07")
	converter  = common.HexToAddress("0x0000000000000000000000000000000000000b08")
	legacyImpl = common.HexToAddress("0x0000000000000000000000000000000000000b09")
	sender     = common.HexToAddress("0x0000000000000000000000000000000000000b0a")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func units(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type fixture struct {
	ctx       context.Context
	net       config.Network
	store     *store.MemoryStore
	reader    *chaintest.Reader
	registrar *chaintest.Registrar
	ix        *indexer.Indexer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	net := config.Mainnet()
	net.PoolImplV1 = legacyImpl

	s := store.NewMemoryStore()
	reader := chaintest.NewReader()
	reader.Symbols[acoAddr] = "ETH-2000C"
	reader.Names[acoAddr] = "ETH call 2000"
	reader.Decimals[acoAddr] = 18
	registrar := &chaintest.Registrar{}

	return &fixture{
		ctx:       context.Background(),
		net:       net,
		store:     s,
		reader:    reader,
		registrar: registrar,
		ix:        indexer.New(s, reader, registrar, net, nil),
	}
}

// at builds an event emitted by addr in transaction tx.
func (f *fixture) at(addr common.Address, tx string, logIndex, timestamp uint64) chain.Event {
	return chain.Event{
		Address:  addr,
		LogIndex: logIndex,
		Block:    chain.Block{Number: f.net.PoolStartBlock + 10, Timestamp: timestamp},
		Tx:       chain.Tx{Hash: common.HexToHash(tx), From: sender},
	}
}

func (f *fixture) newACO(t *testing.T) *model.ACOToken {
	t.Helper()
	err := f.ix.HandleNewACO(f.ctx, indexer.NewACO{
		Event:       f.at(f.net.ACOFactory, "0xa0", 0, 1000),
		Underlying:  eth,
		StrikeAsset: f.net.USDC,
		IsCall:      true,
		StrikePrice: units(2000, 6),
		ExpiryTime:  big.NewInt(10000),
		ACOToken:    acoAddr,
	})
	if err != nil {
		t.Fatalf("new aco: %v", err)
	}
	return mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
}

func (f *fixture) newPool(t *testing.T) *model.ACOPool {
	t.Helper()
	f.reader.Strategies[poolAddr] = strategy
	f.reader.BaseVolatilities[poolAddr] = big.NewInt(70000)
	f.reader.LegacyConfigs[poolAddr] = chain.PoolLegacyConfig{
		AssetConverter:      converter,
		Fee:                 big.NewInt(1000),
		TolerancePriceAbove: big.NewInt(5000),
	}
	err := f.ix.HandleNewPool(f.ctx, indexer.NewPool{
		Event:          f.at(f.net.ACOPoolFactory, "0xe0", 0, 1000),
		Underlying:     eth,
		StrikeAsset:    f.net.USDC,
		IsCall:         true,
		Pool:           poolAddr,
		Implementation: legacyImpl,
	})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return mustLoad[model.ACOPool](t, f, chain.HexID(poolAddr))
}

func mustLoad[T any, PT interface {
	*T
	store.Entity
}](t *testing.T, f *fixture, id string) PT {
	t.Helper()
	v, err := store.MustLoad[T, PT](f.ctx, f.store, id)
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return v
}

func (f *fixture) deposit(t *testing.T, account common.Address, tx string, logIndex uint64, amount *big.Int) {
	t.Helper()
	err := f.ix.HandleCollateralDeposit(f.ctx, indexer.CollateralDeposit{
		Event:   f.at(acoAddr, tx, logIndex, 1000),
		Account: account,
		Amount:  amount,
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func (f *fixture) transfer(t *testing.T, ev chain.Event, from, to common.Address, value *big.Int) {
	t.Helper()
	if err := f.ix.HandleACOTransfer(f.ctx, indexer.Transfer{Event: ev, From: from, To: to, Value: value}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
}

func (f *fixture) collateralized(t *testing.T, account common.Address) decimal.Decimal {
	t.Helper()
	id := chain.HexID(acoAddr)
	if account != eth {
		id = situation.ID(id, chain.HexID(account))
	}
	return mustLoad[model.ACOTokenSituation](t, f, id).CollateralizedTokens
}

func TestNewACO(t *testing.T) {
	f := newFixture(t)
	aco := f.newACO(t)

	if !aco.StrikePrice.Equal(d("2000")) || aco.Collateral != chain.HexID(eth) {
		t.Errorf("aco = strike %s collateral %s", aco.StrikePrice, aco.Collateral)
	}
	if aco.Symbol != "ETH-2000C" || aco.Decimals != 18 || aco.ExpiryTime != 10000 {
		t.Errorf("metadata = %s %d %d", aco.Symbol, aco.Decimals, aco.ExpiryTime)
	}
	if !aco.Fee.IsZero() {
		t.Errorf("reverted fee read should yield zero, got %s", aco.Fee)
	}
	if !f.collateralized(t, eth).IsZero() {
		t.Error("contract situation should start empty")
	}
	if n := f.registrar.Count(acoAddr, chain.TemplateACOToken); n != 1 {
		t.Errorf("aco registered %d times", n)
	}
	if n := f.registrar.Count(f.net.ACOPoolFactory, chain.TemplateACOPoolFactory); n != 1 {
		t.Errorf("pool factory registered %d times", n)
	}
	factory := mustLoad[model.ACOPoolFactory](t, f, chain.HexID(f.net.ACOPoolFactory))
	if len(factory.ActiveACOs) != 1 || factory.ActiveACOs[0] != aco.ID {
		t.Errorf("active = %v", factory.ActiveACOs)
	}

	// Replays leave everything as it was.
	f.newACO(t)
	if n := f.registrar.Count(acoAddr, chain.TemplateACOToken); n != 1 {
		t.Errorf("aco registered %d times after replay", n)
	}
}

func TestMintAccumulatesWithinTransaction(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)

	f.deposit(t, writer, "0xb1", 1, units(100, 18))
	f.deposit(t, writer, "0xb1", 2, units(50, 18))

	if got := f.collateralized(t, writer); !got.Equal(d("150")) {
		t.Errorf("account collateralized = %s, want 150", got)
	}
	if got := f.collateralized(t, eth); !got.Equal(d("150")) {
		t.Errorf("contract collateralized = %s, want 150", got)
	}

	aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if aco.MintsCount != 1 || aco.AccountsCount != 1 {
		t.Errorf("mints %d accounts %d", aco.MintsCount, aco.AccountsCount)
	}
	mint := mustLoad[model.Mint](t, f, aco.LastMintID)
	if !mint.CollateralAmount.Equal(d("150")) || !mint.TokenAmount.Equal(d("150")) {
		t.Errorf("mint = %s collateral %s tokens", mint.CollateralAmount, mint.TokenAmount)
	}
}

func TestCollateralWithdrawBurnThenRedeem(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)
	f.deposit(t, writer, "0xb1", 1, units(100, 18))

	err := f.ix.HandleCollateralWithdraw(f.ctx, indexer.CollateralWithdraw{
		Event:   f.at(acoAddr, "0xb2", 1, 2000),
		Account: writer,
		Amount:  units(39, 18),
		Fee:     units(1, 18),
	})
	if err != nil {
		t.Fatal(err)
	}
	aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if aco.BurnsCount != 1 || aco.AccountRedeemsCount != 0 {
		t.Fatalf("burns %d redeems %d", aco.BurnsCount, aco.AccountRedeemsCount)
	}
	burn := mustLoad[model.Burn](t, f, aco.LastBurnID)
	if !burn.CollateralAmount.Equal(d("40")) {
		t.Errorf("burn collateral = %s, want amount plus fee", burn.CollateralAmount)
	}
	if got := f.collateralized(t, writer); !got.Equal(d("60")) {
		t.Errorf("account collateralized = %s, want 60", got)
	}

	err = f.ix.HandleCollateralWithdraw(f.ctx, indexer.CollateralWithdraw{
		Event:   f.at(acoAddr, "0xb3", 1, 20000),
		Account: writer,
		Amount:  units(10, 18),
		Fee:     big.NewInt(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	aco = mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if aco.BurnsCount != 1 || aco.AccountRedeemsCount != 1 {
		t.Errorf("burns %d redeems %d", aco.BurnsCount, aco.AccountRedeemsCount)
	}
	if got := f.collateralized(t, eth); !got.Equal(d("50")) {
		t.Errorf("contract collateralized = %s, want 50", got)
	}
}

func TestExerciseAggregatesAssignments(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)
	f.deposit(t, writer, "0xb1", 1, units(100, 18))
	f.deposit(t, writer2, "0xb1", 2, units(100, 18))

	exercise := []indexer.Assigned{
		{Event: f.at(acoAddr, "0xc1", 3, 3000), From: writer, To: buyer, PaidAmount: units(20000, 6), TokenAmount: units(10, 18)},
		{Event: f.at(acoAddr, "0xc1", 4, 3000), From: writer2, To: buyer, PaidAmount: units(10000, 6), TokenAmount: units(5, 18)},
	}
	for _, ev := range exercise {
		if err := f.ix.HandleAssigned(f.ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	err := f.ix.HandleCollateralWithdraw(f.ctx, indexer.CollateralWithdraw{
		Event:   f.at(acoAddr, "0xc1", 5, 3000),
		Account: buyer,
		Amount:  units(14, 18),
		Fee:     units(1, 18),
	})
	if err != nil {
		t.Fatal(err)
	}

	aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if aco.ExercisesCount != 1 || aco.BurnsCount != 0 {
		t.Fatalf("exercises %d burns %d", aco.ExercisesCount, aco.BurnsCount)
	}
	ex := mustLoad[model.Exercise](t, f, aco.LastExerciseID)
	if ex.ExercisedAccountsCount != 2 || !ex.TokenAmount.Equal(d("15")) || !ex.PaidAmount.Equal(d("30000")) {
		t.Errorf("exercise = %d accounts %s tokens %s paid", ex.ExercisedAccountsCount, ex.TokenAmount, ex.PaidAmount)
	}
	if got := f.collateralized(t, writer); !got.Equal(d("90")) {
		t.Errorf("writer collateralized = %s, want 90", got)
	}

	total := mustLoad[model.ACOTokenSituation](t, f, chain.HexID(acoAddr))
	if !total.CollateralizedTokens.Equal(d("185")) || !total.ExerciseFee.Equal(d("1")) {
		t.Errorf("contract = %s collateralized %s fee", total.CollateralizedTokens, total.ExerciseFee)
	}
	exerciser := mustLoad[model.ACOTokenSituation](t, f, situation.ID(aco.ID, chain.HexID(buyer)))
	if !exerciser.ExerciseFee.Equal(d("1")) || !exerciser.CollateralizedTokens.IsZero() {
		t.Errorf("exerciser = %s fee %s collateralized", exerciser.ExerciseFee, exerciser.CollateralizedTokens)
	}
}

func TestTransferHoldersAndSupply(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)

	f.transfer(t, f.at(acoAddr, "0xd1", 1, 1000), chain.ZeroAddress, writer, units(100, 18))
	f.transfer(t, f.at(acoAddr, "0xd2", 1, 1000), writer, buyer, units(40, 18))

	aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if !aco.TotalSupply.Equal(d("100")) || aco.HoldersCount != 2 || aco.AccountsCount != 2 {
		t.Fatalf("supply %s holders %d accounts %d", aco.TotalSupply, aco.HoldersCount, aco.AccountsCount)
	}

	f.transfer(t, f.at(acoAddr, "0xd3", 1, 1000), buyer, writer, units(40, 18))
	f.transfer(t, f.at(acoAddr, "0xd4", 1, 1000), writer, chain.ZeroAddress, units(100, 18))

	aco = mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if !aco.TotalSupply.IsZero() || aco.HoldersCount != 0 {
		t.Errorf("supply %s holders %d", aco.TotalSupply, aco.HoldersCount)
	}
	if aco.SwapsCount != 0 {
		t.Errorf("plain transfers recorded %d swaps", aco.SwapsCount)
	}
}

func otcInput(seller common.Address, amount *big.Int, token common.Address) []byte {
	word := func(b []byte) []byte { return common.LeftPadBytes(b, 32) }
	input := common.Hex2Bytes(calldata.SelectorOTCSwap)
	words := [][]byte{word(nil), word(nil), word(seller.Bytes())}
	for i := 0; i < 7; i++ {
		words = append(words, word(nil))
	}
	words = append(words, word(amount.Bytes()), word(token.Bytes()))
	for _, w := range words {
		input = append(input, w...)
	}
	return input
}

func TestOTCTransferRecordsSwapOnce(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)
	f.transfer(t, f.at(acoAddr, "0xd1", 1, 1000), chain.ZeroAddress, writer, units(100, 18))

	ev := f.at(acoAddr, "0xd2", 7, 1000)
	otc := f.net.OTCV1
	ev.Tx.To = &otc
	ev.Tx.Input = otcInput(maker, units(1500, 6), f.net.USDC)
	tr := indexer.Transfer{Event: ev, From: writer, To: buyer, Value: units(10, 18)}

	for i := 0; i < 2; i++ {
		err := f.ix.Process(f.ctx, indexer.KindACOTransfer, ev, func(ctx context.Context) error {
			return f.ix.HandleACOTransfer(ctx, tr)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr))
	if aco.SwapsCount != 1 {
		t.Fatalf("swaps = %d, want 1", aco.SwapsCount)
	}
	swap := mustLoad[model.ACOSwap](t, f, aco.LastSwapID)
	if swap.Seller != chain.HexID(maker) || swap.Buyer != chain.HexID(buyer) || swap.Taker != chain.HexID(sender) {
		t.Errorf("parties = %s %s %s", swap.Seller, swap.Buyer, swap.Taker)
	}
	if swap.Type != model.SwapTypeOTC || !swap.PaymentAmount.Equal(d("1500")) || !swap.ACOAmount.Equal(d("10")) {
		t.Errorf("swap = %s %s for %s", swap.Type, swap.PaymentAmount, swap.ACOAmount)
	}
	acc := mustLoad[model.ACOAccount](t, f, model.ID(aco.ID, chain.HexID(buyer)))
	if !acc.Balance.Equal(d("10")) {
		t.Errorf("buyer balance = %s, redelivery must not apply twice", acc.Balance)
	}
}

func TestProcessFailureLeavesEventPending(t *testing.T) {
	f := newFixture(t)
	ev := f.at(acoAddr, "0xf1", 1, 1000)
	boom := errors.New("boom")

	err := f.ix.Process(f.ctx, indexer.KindACOTransfer, ev, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if f.store.Count(model.KindProcessedEvent) != 0 {
		t.Fatal("failed event marked processed")
	}

	var blocked bool
	err = f.ix.Process(f.ctx, indexer.KindACOTransfer, ev, func(ctx context.Context) error {
		n, ok := chain.BlockFrom(ctx)
		blocked = ok && n == ev.Block.Number
		return nil
	})
	if err != nil || !blocked {
		t.Fatalf("retry: err %v, reads pinned %v", err, blocked)
	}
	if f.store.Count(model.KindProcessedEvent) != 1 {
		t.Error("event not marked processed")
	}
}

func TestNewLegacyPool(t *testing.T) {
	f := newFixture(t)
	pool := f.newPool(t)

	if !pool.TolerancePriceAboveMin.Equal(d("0.05")) || !pool.TolerancePriceAboveMax.IsZero() || !pool.TolerancePriceBelowMin.IsZero() {
		t.Errorf("bands = above %s/%s below %s", pool.TolerancePriceAboveMin, pool.TolerancePriceAboveMax, pool.TolerancePriceBelowMin)
	}
	if !pool.BaseVolatility.Equal(d("0.7")) || !pool.Fee.Equal(d("0.01")) || pool.Collateral != chain.HexID(eth) {
		t.Errorf("pool = vol %s fee %s collateral %s", pool.BaseVolatility, pool.Fee, pool.Collateral)
	}
	if pool.StrategiesHistoryCount != 1 || pool.PermissionsHistoryCount != 1 || pool.PoolAdminsHistoryCount != 0 {
		t.Errorf("history = %d %d %d", pool.StrategiesHistoryCount, pool.PermissionsHistoryCount, pool.PoolAdminsHistoryCount)
	}
	if f.reader.Called("lendingPool") != 0 {
		t.Error("first legacy implementation has no lending pool")
	}
	if n := f.registrar.Count(poolAddr, chain.TemplateACOPool); n != 1 {
		t.Errorf("pool registered %d times", n)
	}
	if n := f.registrar.Count(converter, chain.TemplateAssetConverterHelper); n != 1 {
		t.Errorf("converter registered %d times", n)
	}
	factory := mustLoad[model.ACOPoolFactory](t, f, chain.HexID(f.net.ACOPoolFactory))
	if len(factory.Pools) != 1 || factory.Pools[0] != pool.ID {
		t.Errorf("factory pools = %v", factory.Pools)
	}

	err := f.ix.HandleSetTolerancePriceBelow(f.ctx, indexer.ValueChange{
		Event: f.at(poolAddr, "0xe1", 0, 1100),
		Old:   big.NewInt(0),
		New:   big.NewInt(3000),
	})
	if err != nil {
		t.Fatal(err)
	}
	pool = mustLoad[model.ACOPool](t, f, pool.ID)
	if !pool.TolerancePriceAboveMax.Equal(d("0.05")) || !pool.TolerancePriceBelowMax.Equal(d("0.03")) || !pool.TolerancePriceAboveMin.IsZero() {
		t.Errorf("bands = above max %s below max %s above min %s", pool.TolerancePriceAboveMax, pool.TolerancePriceBelowMax, pool.TolerancePriceAboveMin)
	}
	if pool.PermissionsHistoryCount != 2 {
		t.Errorf("permission history = %d", pool.PermissionsHistoryCount)
	}
}

func TestPoolMintChangesSupplyOnly(t *testing.T) {
	f := newFixture(t)
	f.newPool(t)

	err := f.ix.HandlePoolTransfer(f.ctx, indexer.Transfer{
		Event: f.at(poolAddr, "0xe2", 1, 1200),
		From:  chain.ZeroAddress,
		To:    buyer,
		Value: units(50, 18),
	})
	if err != nil {
		t.Fatal(err)
	}
	pool := mustLoad[model.ACOPool](t, f, chain.HexID(poolAddr))
	if !pool.TotalSupply.Equal(d("50")) {
		t.Errorf("supply = %s, want 50", pool.TotalSupply)
	}
	if n := f.store.Count(model.KindPoolAccount); n != 0 {
		t.Errorf("mint created %d accounts", n)
	}
}

func TestPoolDepositWithdrawWithoutOptions(t *testing.T) {
	f := newFixture(t)
	f.newPool(t)

	err := f.ix.HandleDeposit(f.ctx, indexer.Deposit{
		Event:            f.at(poolAddr, "0xe3", 1, 1200),
		Account:          buyer,
		Shares:           units(50, 18),
		CollateralAmount: units(5, 18),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = f.ix.HandleWithdraw(f.ctx, indexer.Withdraw{
		Event:                f.at(poolAddr, "0xe4", 1, 1300),
		Account:              buyer,
		Shares:               units(50, 18),
		UnderlyingWithdrawn:  units(5, 18),
		StrikeAssetWithdrawn: big.NewInt(0),
	})
	if err != nil {
		t.Fatal(err)
	}

	pool := mustLoad[model.ACOPool](t, f, chain.HexID(poolAddr))
	if pool.DepositsCount != 1 || pool.WithdrawalsCount != 1 || pool.HoldersCount != 0 || pool.AccountsCount != 1 {
		t.Fatalf("pool = deposits %d withdrawals %d holders %d accounts %d",
			pool.DepositsCount, pool.WithdrawalsCount, pool.HoldersCount, pool.AccountsCount)
	}
	w := mustLoad[model.Withdrawal](t, f, pool.LastWithdrawalID)
	if w.OpenACOsCount != 0 || !w.UnderlyingWithdrawn.Equal(d("5")) {
		t.Errorf("withdrawal = %d open %s underlying", w.OpenACOsCount, w.UnderlyingWithdrawn)
	}
	if n := f.store.Count(model.KindACOAmount); n != 0 {
		t.Errorf("%d option amounts recorded", n)
	}
}

func TestPoolSwapOpensAndRedeemCloses(t *testing.T) {
	f := newFixture(t)
	aco := f.newACO(t)
	f.newPool(t)

	swap := indexer.PoolSwap{
		Event:       f.at(poolAddr, "0xe5", 2, 1400),
		Account:     buyer,
		ACOToken:    acoAddr,
		TokenAmount: units(2, 18),
		Price:       units(300, 6),
	}
	if err := f.ix.HandlePoolSwap(f.ctx, swap); err != nil {
		t.Fatal(err)
	}
	if err := f.ix.HandlePoolSwap(f.ctx, swap); err != nil {
		t.Fatal(err)
	}

	pool := mustLoad[model.ACOPool](t, f, chain.HexID(poolAddr))
	onPool := mustLoad[model.ACOOnPool](t, f, model.ID(pool.ID, aco.ID))
	if pool.SwapsCount != 1 || pool.ACOsCount != 1 || pool.OpenACOsCount != 1 {
		t.Fatalf("pool = swaps %d acos %d open %d", pool.SwapsCount, pool.ACOsCount, pool.OpenACOsCount)
	}
	if !onPool.IsOpen || !onPool.CollateralLocked.Equal(d("2")) || !onPool.ValueSold.Equal(d("300")) {
		t.Errorf("on pool = open %v locked %s sold %s", onPool.IsOpen, onPool.CollateralLocked, onPool.ValueSold)
	}
	rec := mustLoad[model.ACOSwap](t, f, pool.LastSwapID)
	if rec.Seller != pool.ID || rec.Buyer != chain.HexID(buyer) || rec.Type != model.SwapTypePool {
		t.Errorf("swap = %s -> %s (%s)", rec.Seller, rec.Buyer, rec.Type)
	}

	err := f.ix.HandleACORedeem(f.ctx, indexer.ACORedeem{
		Event:              f.at(poolAddr, "0xe6", 1, 20000),
		ACOToken:           acoAddr,
		ValueSold:          units(300, 6),
		CollateralLocked:   units(2, 18),
		CollateralRedeemed: units(2, 18),
	})
	if err != nil {
		t.Fatal(err)
	}
	pool = mustLoad[model.ACOPool](t, f, pool.ID)
	onPool = mustLoad[model.ACOOnPool](t, f, onPool.ID)
	if onPool.IsOpen || pool.OpenACOsCount != 0 || pool.ACORedeemsCount != 1 {
		t.Errorf("after redeem: open %v pool open %d redeems %d", onPool.IsOpen, pool.OpenACOsCount, pool.ACORedeemsCount)
	}
}

func TestCreatorPermission(t *testing.T) {
	f := newFixture(t)
	f.newPool(t)
	creator := common.HexToAddress("0x0000000000000000000000000000000000000c01")

	events := []struct {
		handle func(context.Context, indexer.CreatorPermission) error
		tx     string
		value  bool
	}{
		{f.ix.HandleSetValidACOCreator, "0xe7", true},
		{f.ix.HandleSetForbiddenACOCreator, "0xe8", false},
	}
	for _, e := range events {
		ev := indexer.CreatorPermission{Event: f.at(poolAddr, e.tx, 0, 1500), Creator: creator, New: e.value}
		if err := e.handle(f.ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	pool := mustLoad[model.ACOPool](t, f, chain.HexID(poolAddr))
	if pool.ACOCreatorsPermissionCount != 1 {
		t.Errorf("permissions = %d", pool.ACOCreatorsPermissionCount)
	}
	p := mustLoad[model.ACOCreatorPermission](t, f, model.ID(pool.ID, chain.HexID(creator)))
	if p.IsValid != model.TristateOf(true) || p.IsForbidden != model.TristateOf(false) {
		t.Errorf("permission = %+v", p)
	}
}

func TestFailedEventLeavesNoWrites(t *testing.T) {
	f := newFixture(t)
	impl := common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	proxy := common.HexToAddress("0x0000000000000000000000000000000000000b0c")
	agg := common.HexToAddress("0x0000000000000000000000000000000000000b0d")
	pool := &model.ACOPool{
		ID:             chain.HexID(poolAddr),
		Underlying:     chain.HexID(eth),
		StrikeAsset:    chain.HexID(f.net.USDC),
		Collateral:     chain.HexID(eth),
		IsCall:         true,
		Decimals:       18,
		Implementation: chain.HexID(impl),
	}
	err := store.SaveAll(f.ctx, f.store,
		pool,
		&model.AggregatorInterface{ID: chain.HexID(agg), Proxy: chain.HexID(proxy), Decimals: 8, Price: d("2000")},
		&model.AggregatorProxy{ID: chain.HexID(proxy), BaseAsset: pool.Underlying, QuoteAsset: pool.StrikeAsset, Aggregator: chain.HexID(agg)},
		&model.PricePair{ID: resolver.PairID(pool.Underlying, pool.StrikeAsset), Proxy: chain.HexID(proxy)},
	)
	if err != nil {
		t.Fatal(err)
	}

	reset := errors.New("rpc: connection reset")
	f.reader.FailOnce("getGeneralData", reset)
	ev := f.at(poolAddr, "0xe9", 1, 1200)
	mint := indexer.Transfer{Event: ev, From: chain.ZeroAddress, To: buyer, Value: units(50, 18)}
	process := func() error {
		return f.ix.Process(f.ctx, indexer.KindPoolTransfer, ev, func(ctx context.Context) error {
			return f.ix.HandlePoolTransfer(ctx, mint)
		})
	}

	if err := process(); !errors.Is(err, reset) {
		t.Fatalf("first delivery: err = %v, want %v", err, reset)
	}
	if got := mustLoad[model.ACOPool](t, f, pool.ID); !got.TotalSupply.IsZero() {
		t.Fatalf("supply after failed delivery = %s, want 0", got.TotalSupply)
	}
	if f.store.Count(model.KindProcessedEvent) != 0 {
		t.Fatal("failed event marked processed")
	}

	if err := process(); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := mustLoad[model.ACOPool](t, f, pool.ID); !got.TotalSupply.Equal(d("50")) {
		t.Errorf("supply after redelivery = %s, want 50", got.TotalSupply)
	}
	if n := f.reader.Called("getGeneralData"); n != 2 {
		t.Errorf("general data read %d times, want 2", n)
	}
}

func TestCallEventIDsStayClearOfLogs(t *testing.T) {
	f := newFixture(t)
	ev := f.at(acoAddr, "0xc1", 0, 1000)

	call := indexer.EventID(indexer.KindConfirmAggregator, ev)
	if call == indexer.EventID(indexer.KindAnswerUpdated, ev) {
		t.Errorf("call and log 0 of one transaction share id %s", call)
	}
	if call != indexer.EventID(indexer.KindConfirmAggregator, ev) {
		t.Error("call id not deterministic")
	}
	other := ev
	other.Address = poolAddr
	if call == indexer.EventID(indexer.KindConfirmAggregator, other) {
		t.Error("calls on different contracts share an id")
	}
}

func abiWord(v *big.Int) []byte { return common.LeftPadBytes(v.Bytes(), 32) }

func addrWord(a common.Address) []byte { return common.LeftPadBytes(a.Bytes(), 32) }

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// limitOrder encodes a v4 limit order struct.
func limitOrder(orderMaker, makerToken, takerToken common.Address, makerAmount, takerAmount *big.Int) []byte {
	zero := big.NewInt(0)
	return join(
		addrWord(makerToken), addrWord(takerToken),
		abiWord(makerAmount), abiWord(takerAmount), abiWord(zero),
		addrWord(orderMaker), addrWord(eth), addrWord(eth), addrWord(eth),
		abiWord(zero), abiWord(zero), abiWord(zero),
	)
}

func signature() []byte {
	return join(abiWord(big.NewInt(2)), abiWord(big.NewInt(27)), abiWord(big.NewInt(1)), abiWord(big.NewInt(2)))
}

func fillLimitOrder(order []byte, fill *big.Int) []byte {
	return join(common.Hex2Bytes(calldata.SelectorFillLimitOrder), order, signature(), abiWord(fill))
}

func batchFillLimitOrders(orders [][]byte, fills []*big.Int) []byte {
	n := int64(len(orders))
	ordersAt := int64(4 * 32)
	sigsAt := ordersAt + 32 + n*12*32
	fillsAt := sigsAt + 32 + n*4*32

	parts := [][]byte{
		common.Hex2Bytes(calldata.SelectorBatchFillLimitOrders),
		abiWord(big.NewInt(ordersAt)), abiWord(big.NewInt(sigsAt)), abiWord(big.NewInt(fillsAt)), abiWord(big.NewInt(0)),
		abiWord(big.NewInt(n)),
	}
	parts = append(parts, orders...)
	parts = append(parts, abiWord(big.NewInt(n)))
	for range orders {
		parts = append(parts, signature())
	}
	parts = append(parts, abiWord(big.NewInt(n)))
	for _, fill := range fills {
		parts = append(parts, abiWord(fill))
	}
	return join(parts...)
}

// buyerCall wraps a v4 call as the bytes argument of a buyer proxy call.
func buyerCall(inner []byte) []byte {
	padded := common.RightPadBytes(inner, (len(inner)+31)/32*32)
	return join(common.Hex2Bytes("0badf00d"),
		addrWord(acoAddr), abiWord(big.NewInt(64)),
		abiWord(big.NewInt(int64(len(inner)))), padded)
}

func (f *fixture) swaps(t *testing.T) []*model.ACOSwap {
	t.Helper()
	var out []*model.ACOSwap
	for _, id := range f.store.IDs(model.KindACOSwap) {
		out = append(out, mustLoad[model.ACOSwap](t, f, id))
	}
	return out
}

func TestDirectV4FillRecordsMatchingSwap(t *testing.T) {
	usdc := config.Mainnet().USDC
	tests := []struct {
		name  string
		order []byte
		fill  *big.Int
		swaps int
	}{
		{
			name:  "taker buys",
			order: limitOrder(maker, acoAddr, usdc, units(10, 18), units(10000, 6)),
			fill:  units(5000, 6),
			swaps: 1,
		},
		{
			name:  "taker sells",
			order: limitOrder(maker, usdc, acoAddr, units(10000, 6), units(10, 18)),
			fill:  units(5, 18),
			swaps: 1,
		},
		{
			name:  "size mismatch",
			order: limitOrder(maker, acoAddr, usdc, units(10, 18), units(10000, 6)),
			fill:  units(4000, 6),
			swaps: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.newACO(t)
			f.transfer(t, f.at(acoAddr, "0xd1", 1, 1000), chain.ZeroAddress, writer, units(100, 18))

			ev := f.at(acoAddr, "0xd5", 3, 1000)
			exchange := f.net.ZRXV4Exchange
			ev.Tx.To = &exchange
			ev.Tx.Input = fillLimitOrder(tt.order, tt.fill)
			f.transfer(t, ev, writer, buyer, units(5, 18))

			swaps := f.swaps(t)
			if len(swaps) != tt.swaps {
				t.Fatalf("swaps = %d, want %d", len(swaps), tt.swaps)
			}
			if tt.swaps == 0 {
				return
			}
			s := swaps[0]
			if s.Seller != chain.HexID(writer) || s.Buyer != chain.HexID(buyer) || s.Taker != chain.HexID(sender) {
				t.Errorf("parties = %s %s %s", s.Seller, s.Buyer, s.Taker)
			}
			if s.Type != model.SwapTypeZRXV4 || s.PaymentToken != chain.HexID(usdc) {
				t.Errorf("swap = %s paid in %s", s.Type, s.PaymentToken)
			}
			if !s.PaymentAmount.Equal(d("5000")) || !s.ACOAmount.Equal(d("5")) {
				t.Errorf("swap = %s for %s", s.PaymentAmount, s.ACOAmount)
			}
		})
	}
}

func TestBuyerRouteRecordsEachFill(t *testing.T) {
	f := newFixture(t)
	f.newACO(t)
	proxy := f.net.Buyer
	f.transfer(t, f.at(acoAddr, "0xd1", 1, 1000), chain.ZeroAddress, proxy, units(100, 18))

	usdc := f.net.USDC
	inner := batchFillLimitOrders([][]byte{
		limitOrder(writer2, acoAddr, usdc, units(10, 18), units(10000, 6)),
		limitOrder(maker, acoAddr, usdc, units(10, 18), units(10000, 6)),
	}, []*big.Int{units(4000, 6), units(6000, 6)})

	ev := f.at(acoAddr, "0xd6", 2, 1000)
	ev.Tx.To = &proxy
	ev.Tx.Input = buyerCall(inner)
	f.transfer(t, ev, proxy, buyer, units(10, 18))

	swaps := f.swaps(t)
	if len(swaps) != 2 {
		t.Fatalf("swaps = %d, want 2", len(swaps))
	}
	want := map[string][2]decimal.Decimal{
		chain.HexID(writer2): {d("4"), d("4000")},
		chain.HexID(maker):   {d("6"), d("6000")},
	}
	total := decimal.Zero
	for _, s := range swaps {
		w, ok := want[s.Seller]
		if !ok {
			t.Fatalf("unexpected seller %s", s.Seller)
		}
		if !s.ACOAmount.Equal(w[0]) || !s.PaymentAmount.Equal(w[1]) {
			t.Errorf("seller %s: %s for %s, want %s for %s", s.Seller, s.PaymentAmount, s.ACOAmount, w[1], w[0])
		}
		if s.Buyer != chain.HexID(buyer) || s.Taker != chain.HexID(sender) {
			t.Errorf("seller %s: buyer %s taker %s", s.Seller, s.Buyer, s.Taker)
		}
		total = total.Add(s.ACOAmount)
	}
	if !total.Equal(d("10")) {
		t.Errorf("fills sum to %s, transfer moved 10", total)
	}
	if aco := mustLoad[model.ACOToken](t, f, chain.HexID(acoAddr)); aco.SwapsCount != 2 {
		t.Errorf("swaps count = %d", aco.SwapsCount)
	}
}
