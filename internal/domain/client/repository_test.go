package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockClientRepository struct {
	mock.Mock
}

func (_m *MockClientRepository) Create(ctx context.Context, client *Client) error {
	ret := _m.Called(ctx, client)
	return ret.Error(0)
}

func (_m *MockClientRepository) Update(ctx context.Context, client *Client) error {
	ret := _m.Called(ctx, client)
	return ret.Error(0)
}

func (_m *MockClientRepository) FindByID(ctx context.Context, clientID uuid.UUID) (*Client, error) {
	ret := _m.Called(ctx, clientID)

	var r0 *Client
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Client)
	}
	return r0, ret.Error(1)
}

func (_m *MockClientRepository) FindAll(ctx context.Context, activeOnly bool) ([]*Client, error) {
	ret := _m.Called(ctx, activeOnly)

	var r0 []*Client
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Client)
	}
	return r0, ret.Error(1)
}

func (_m *MockClientRepository) Delete(ctx context.Context, clientID uuid.UUID) error {
	ret := _m.Called(ctx, clientID)
	return ret.Error(0)
}

func (_m *MockClientRepository) SetActiveStatus(ctx context.Context, clientID uuid.UUID, isActive bool) error {
	ret := _m.Called(ctx, clientID, isActive)
	return ret.Error(0)
}

type MockActiveLoanChecker struct {
	mock.Mock
}

func (_m *MockActiveLoanChecker) HasActiveLoans(ctx context.Context, clientID uuid.UUID) (bool, error) {
	ret := _m.Called(ctx, clientID)
	return ret.Bool(0), ret.Error(1)
}
