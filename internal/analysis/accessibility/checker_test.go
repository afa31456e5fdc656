package accessibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/mocks"
)

func TestRun(t *testing.T) {
	withAlt := schemas.MediaDescriptor{Source: "a.png", Attributes: map[string]string{"alt": "A"}}
	labelled := schemas.MediaDescriptor{Source: "b.png", Attributes: map[string]string{"aria-label": "B"}}
	bare := schemas.MediaDescriptor{Source: "c.png", Attributes: map[string]string{"src": "c.png"}}

	tests := []struct {
		name     string
		ids      []string
		media    []schemas.MediaDescriptor
		idStatus schemas.Status
		altState schemas.Status
	}{
		{"Clean", []string{"chat-body", "time-1", "m1"}, []schemas.MediaDescriptor{withAlt, labelled}, schemas.StatusPass, schemas.StatusPass},
		{"Duplicate After Insert", []string{"time-1", "time-2", "time-2"}, nil, schemas.StatusFail, schemas.StatusPass},
		{"Inserted Image Without Alt", []string{"a"}, []schemas.MediaDescriptor{withAlt, bare}, schemas.StatusPass, schemas.StatusFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := new(mocks.MockPage)
			page.On("IDs", mock.Anything).Return(tt.ids, nil)
			page.On("Media", mock.Anything, "img").Return(tt.media, nil)

			facets := NewChecker(Config{}, zaptest.NewLogger(t)).Run(context.Background(), page)
			require.Len(t, facets, 2)
			assert.Equal(t, tt.idStatus, facets[0].Status, facets[0].Message)
			assert.Equal(t, tt.altState, facets[1].Status, facets[1].Message)
			for _, f := range facets {
				assert.Equal(t, schemas.CheckAccessibilitySmoke, f.Check)
			}
		})
	}
}

func TestRun_DuplicateNamed(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("IDs", mock.Anything).Return([]string{"hdr-1", "x", "hdr-1"}, nil)
	page.On("Media", mock.Anything, "img").Return([]schemas.MediaDescriptor{}, nil)

	f := NewChecker(Config{}, nil).Run(context.Background(), page)[0]
	assert.Equal(t, "duplicate element ids in rendered page: hdr-1", f.Message)
	assert.Equal(t, map[string]int{"hdr-1": 2}, f.Evidence["counts"])
}

func TestRun_Errors(t *testing.T) {
	page := new(mocks.MockPage)
	page.On("IDs", mock.Anything).Return(nil, errors.New("context deadline exceeded"))
	page.On("Media", mock.Anything, "img").Return(nil, schemas.ErrCollaboratorUnavailable)

	facets := NewChecker(Config{}, nil).Run(context.Background(), page)
	for _, f := range facets {
		assert.Equal(t, schemas.StatusError, f.Status)
	}
}
