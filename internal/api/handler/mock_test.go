package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/swapd/internal/model"
)

type mockDeployService struct {
	mock.Mock
}

func (m *mockDeployService) Deploy(ctx context.Context) (*model.Attempt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Attempt), args.Error(1)
}

func (m *mockDeployService) Status(ctx context.Context) (*model.StatusReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusReport), args.Error(1)
}

type mockReadyChecker struct {
	mock.Mock
}

func (m *mockReadyChecker) Ready(ctx context.Context) map[string]error {
	args := m.Called(ctx)
	return args.Get(0).(map[string]error)
}
