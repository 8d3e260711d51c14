package integration

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpadapter "github.com/fxledger/fxledger/internal/adapter/http"
	"github.com/fxledger/fxledger/internal/adapter/http/handler"
	postgresrepo "github.com/fxledger/fxledger/internal/adapter/repository/postgres"
	"github.com/fxledger/fxledger/internal/infrastructure/metrics"
	"github.com/fxledger/fxledger/internal/lockmgr"
	"github.com/fxledger/fxledger/internal/ratecache"
	"github.com/fxledger/fxledger/internal/usecase"
	"github.com/fxledger/fxledger/tests/testutil"
)

// Prometheus metrics register globally, so they are created once for
// the whole test binary.
var (
	metricsOnce   sync.Once
	sharedMetrics *metrics.Metrics
)

func testMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = metrics.New()
	})
	return sharedMetrics
}

// testStack wires the full service stack against a real database, with
// in-process locks and no Redis.
type testStack struct {
	DB       *testutil.TestDB
	Router   http.Handler
	Engine   *usecase.Engine
	Accounts *usecase.AccountService
	Balances *usecase.BalanceService
	Rates    *usecase.RateService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	t.Cleanup(testDB.Cleanup)

	pool := testDB.Pool
	log := zerolog.Nop()

	txManager := postgresrepo.NewTxManager(pool, postgresrepo.NewRetrier(log))
	assetRepo := postgresrepo.NewAssetRepository(pool)
	rateRepo := postgresrepo.NewRateRepository(pool)
	accountRepo := postgresrepo.NewAccountRepository(pool)
	postingRepo := postgresrepo.NewPostingRepository(pool)
	idGen := postgresrepo.NewULIDGenerator()

	m := testMetrics()
	cache := ratecache.New(time.Minute, 256)
	locker := lockmgr.NewManager(10*time.Millisecond, 5*time.Second)

	rateUC := usecase.NewRateService(rateRepo, assetRepo, cache, nil, usecase.RateConfig{
		BaseAsset:    "USD",
		AllowReverse: true,
		AllowCross:   true,
	}, m, log)
	balanceUC := usecase.NewBalanceService(accountRepo, assetRepo, postingRepo, rateUC)
	assetUC := usecase.NewAssetService(assetRepo, cache, log)
	accountUC := usecase.NewAccountService(accountRepo, assetRepo, postingRepo, txManager, idGen, m, log)
	engine := usecase.NewEngine(accountRepo, assetRepo, postingRepo, txManager, idGen, locker,
		rateUC, balanceUC, usecase.EngineConfig{KeepIntegrity: true}, m, log)

	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		AssetHandler:   handler.NewAssetHandler(assetUC),
		RateHandler:    handler.NewRateHandler(rateUC),
		AccountHandler: handler.NewAccountHandler(accountUC, balanceUC),
		PostingHandler: handler.NewPostingHandler(engine, postingRepo),
		HealthHandler:  handler.NewHealthHandler(pool, nil),
		Logger:         log,
	})

	return &testStack{
		DB:       testDB,
		Router:   router,
		Engine:   engine,
		Accounts: accountUC,
		Balances: balanceUC,
		Rates:    rateUC,
	}
}
