package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockLedgerService Mock 账本服务
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateOrder(ctx context.Context, userID int64, side model.OrderSide, base, quote string,
	amount, price decimal.Decimal) (*model.Order, error) {
	args := m.Called(ctx, userID, side, base, quote, amount, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLedgerService) CancelOrder(ctx context.Context, orderID, callerUserID int64) error {
	args := m.Called(ctx, orderID, callerUserID)
	return args.Error(0)
}

func (m *MockLedgerService) FillOrder(ctx context.Context, orderID int64, increment decimal.Decimal) (*model.Order, error) {
	args := m.Called(ctx, orderID, increment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLedgerService) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockLedgerService) ListOrders(ctx context.Context, userID int64, page *repository.Pagination) ([]*model.Order, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockLedgerService) AddBalance(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	args := m.Called(ctx, userID, currency, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockLedgerService) GetWallet(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockLedgerService) ListWallets(ctx context.Context, userID int64) ([]*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Wallet), args.Error(1)
}

func (m *MockLedgerService) ListOrderEvents(ctx context.Context, orderID, callerUserID int64) ([]*model.OrderEvent, error) {
	args := m.Called(ctx, orderID, callerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderEvent), args.Error(1)
}

// MockFeeService Mock 手续费服务
type MockFeeService struct {
	mock.Mock
}

func (m *MockFeeService) GetFeeRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	args := m.Called(ctx, pair)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFeeService) GetTotalFees(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFeeService) UpdateFeeRate(ctx context.Context, pair string, feePercentage decimal.Decimal, adminID int64) (*model.FeeRate, error) {
	args := m.Called(ctx, pair, feePercentage, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FeeRate), args.Error(1)
}

func (m *MockFeeService) RecordFeeTransaction(ctx context.Context, orderID int64, amount decimal.Decimal, feeType model.FeeType) (*model.FeeTransaction, error) {
	args := m.Called(ctx, orderID, amount, feeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FeeTransaction), args.Error(1)
}

func (m *MockFeeService) ListFeeTransactions(ctx context.Context, orderID int64) ([]*model.FeeTransaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FeeTransaction), args.Error(1)
}

const testAdminID int64 = 1

type testServer struct {
	engine *gin.Engine
	ledger *MockLedgerService
	fees   *MockFeeService
	health *HealthHandler
}

func newTestServer() *testServer {
	ledger := new(MockLedgerService)
	fees := new(MockFeeService)
	health := NewHealthHandler(nil)
	health.SetReady(true)

	engine := NewEngine(&Router{
		Balance:  NewBalanceHandler(ledger),
		Order:    NewOrderHandler(ledger, fees),
		Fee:      NewFeeHandler(fees),
		AdminIDs: []int64{testAdminID},
		Health:   health,
	})
	return &testServer{engine: engine, ledger: ledger, fees: fees, health: health}
}

// do 发送请求，userID 为 0 时不带认证头
func (s *testServer) do(method, path string, userID int64, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(AuthHeader, BearerPrefix+strconv.FormatInt(userID, 10))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) *Response {
	t.Helper()
	resp := &Response{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), resp))
	return resp
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq 按数值比较 decimal 参数
func decEq(s string) interface{} {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}
