package mocks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/mocks"
)

func TestMockPage_NilSlicesAndErrors(t *testing.T) {
	page := new(mocks.MockPage)
	boom := errors.New("boom")
	page.On("Rects", mock.Anything, ".message").Return(nil, boom)
	page.On("IDs", mock.Anything).Return([]string{"a"}, nil)

	rects, err := page.Rects(context.Background(), ".message")
	assert.Nil(t, rects)
	assert.ErrorIs(t, err, boom)

	ids, err := page.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
	page.AssertExpectations(t)
}

func TestMockPage_ComputedStyle(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("ComputedStyle", mock.Anything, "img", 1, "transform").Return("none", nil)

	v, err := page.ComputedStyle(context.Background(), "img", 1, "transform")
	require.NoError(t, err)
	assert.Equal(t, "none", v)
	page.AssertExpectations(t)
}

func TestMockPageOpener(t *testing.T) {
	page := new(mocks.MockPage)
	opener := new(mocks.MockPageOpener)
	opener.On("NewPage", mock.Anything).Return(page, nil).Once()
	opener.On("NewPage", mock.Anything).Return(nil, schemas.ErrCollaboratorUnavailable).Once()

	got, err := opener.NewPage(context.Background())
	require.NoError(t, err)
	assert.Same(t, page, got)

	_, err = opener.NewPage(context.Background())
	assert.ErrorIs(t, err, schemas.ErrCollaboratorUnavailable)
}
