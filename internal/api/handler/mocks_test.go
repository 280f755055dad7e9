package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loan-tracker/internal/api/handler/dto"
	"loan-tracker/internal/config"
	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/loan"
	"loan-tracker/internal/domain/user"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

type MockLoanService struct {
	mock.Mock
}

var _ loan.LoanService = (*MockLoanService)(nil)

func (m *MockLoanService) CreateLoan(ctx context.Context, params loan.CreateLoanParams) (*loan.Loan, error) {
	args := m.Called(ctx, params)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, filter loan.LoanFilter) ([]*loan.Loan, error) {
	args := m.Called(ctx, filter)
	if l, ok := args.Get(0).([]*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) CancelLoan(ctx context.Context, loanID uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if l, ok := args.Get(0).(*loan.Loan); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ApplyPayment(ctx context.Context, params loan.ApplyPaymentParams) (*loan.Payment, error) {
	args := m.Called(ctx, params)
	if p, ok := args.Get(0).(*loan.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) ListPayments(ctx context.Context, loanID *uuid.UUID) ([]*loan.Payment, error) {
	args := m.Called(ctx, loanID)
	if p, ok := args.Get(0).([]*loan.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) DetectOverdueInstallments(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanService) RefreshOverdueStatus(ctx context.Context, loanID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, loanID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanService) DashboardMetrics(ctx context.Context) (*loan.DashboardMetrics, error) {
	args := m.Called(ctx)
	if d, ok := args.Get(0).(*loan.DashboardMetrics); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockClientService struct {
	mock.Mock
}

var _ client.ClientService = (*MockClientService)(nil)

func (m *MockClientService) CreateClient(ctx context.Context, details client.Details) (*client.Client, error) {
	args := m.Called(ctx, details)
	if c, ok := args.Get(0).(*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClientService) GetClient(ctx context.Context, clientID uuid.UUID) (*client.Client, error) {
	args := m.Called(ctx, clientID)
	if c, ok := args.Get(0).(*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClientService) ListClients(ctx context.Context, activeOnly bool) ([]*client.Client, error) {
	args := m.Called(ctx, activeOnly)
	if c, ok := args.Get(0).([]*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClientService) UpdateClient(ctx context.Context, clientID uuid.UUID, details client.Details) (*client.Client, error) {
	args := m.Called(ctx, clientID, details)
	if c, ok := args.Get(0).(*client.Client); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClientService) DeactivateClient(ctx context.Context, clientID uuid.UUID) error {
	return m.Called(ctx, clientID).Error(0)
}

func (m *MockClientService) ReactivateClient(ctx context.Context, clientID uuid.UUID) error {
	return m.Called(ctx, clientID).Error(0)
}

func (m *MockClientService) DeleteClient(ctx context.Context, clientID uuid.UUID) error {
	return m.Called(ctx, clientID).Error(0)
}

type MockAuthService struct {
	mock.Mock
}

var _ user.AuthService = (*MockAuthService)(nil)

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*user.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if r, ok := args.Get(0).(*user.LoginResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) Verify(ctx context.Context, token string) (*user.User, error) {
	args := m.Called(ctx, token)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) EnsureDefaultUser(ctx context.Context, defaults config.DefaultUserConfig) error {
	return m.Called(ctx, defaults).Error(0)
}

func (m *MockAuthService) ListUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if u, ok := args.Get(0).([]*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
