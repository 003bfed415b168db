package services_test

import (
	"context"

	"github.com/kardan-dev/kardan-api/internal/models"
	"github.com/kardan-dev/kardan-api/pkg/email"
	"github.com/stretchr/testify/mock"
)

// MockLeadLog is a mock implementation of repository.LeadLogDataSource
type MockLeadLog struct {
	mock.Mock
}

func (m *MockLeadLog) Append(ctx context.Context, record models.LeadRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLeadLog) AppendRow(ctx context.Context, values []string) error {
	args := m.Called(ctx, values)
	return args.Error(0)
}

// MockNotifier is a mock implementation of services.LeadNotifierService
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyConfirmation(ctx context.Context, record models.LeadRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockNotifier) NotifyInternal(ctx context.Context, record models.LeadRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockSender is a mock implementation of email.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// sent returns every message passed to Send, in call order
func (m *MockSender) sent() []email.Message {
	var out []email.Message
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.Get(1).(email.Message))
		}
	}
	return out
}

// MockCaptcha is a mock implementation of services.CaptchaVerifier
type MockCaptcha struct {
	mock.Mock
}

func (m *MockCaptcha) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	args := m.Called(ctx, token, remoteIP)
	return args.Error(0)
}
