// Package mocks provides testify mocks for the collaborator interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// -- Page Mock --

// MockPage mocks schemas.Page.
type MockPage struct {
	mock.Mock
}

var _ schemas.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) WaitVisible(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockPage) Rects(ctx context.Context, selector string) ([]schemas.ElementDescriptor, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.ElementDescriptor), args.Error(1)
}

func (m *MockPage) ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error) {
	args := m.Called(ctx, selector, index, property)
	return args.String(0), args.Error(1)
}

func (m *MockPage) ScrollOffset(ctx context.Context, selector string) (float64, error) {
	args := m.Called(ctx, selector)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPage) SetScrollOffset(ctx context.Context, selector string, y float64) error {
	return m.Called(ctx, selector, y).Error(0)
}

func (m *MockPage) ScrollExtent(ctx context.Context, selector string) (schemas.ScrollExtent, error) {
	args := m.Called(ctx, selector)
	return args.Get(0).(schemas.ScrollExtent), args.Error(1)
}

func (m *MockPage) Media(ctx context.Context, selector string) ([]schemas.MediaDescriptor, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.MediaDescriptor), args.Error(1)
}

func (m *MockPage) Separators(ctx context.Context, selector string) ([]schemas.SeparatorSnapshot, error) {
	args := m.Called(ctx, selector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.SeparatorSnapshot), args.Error(1)
}

func (m *MockPage) IDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPage) InvokeHook(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Page Opener Mock --

// MockPageOpener mocks schemas.PageOpener.
type MockPageOpener struct {
	mock.Mock
}

var _ schemas.PageOpener = (*MockPageOpener)(nil)

func (m *MockPageOpener) NewPage(ctx context.Context) (schemas.Page, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(schemas.Page), args.Error(1)
}
