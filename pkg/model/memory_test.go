package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/model"
)

func TestNewMemoryID(t *testing.T) {
	id := model.NewMemoryID()
	gt.True(t, strings.HasPrefix(string(id), "mem_"))
	gt.Equal(t, len(id), len("mem_")+12)

	other := model.NewMemoryID()
	gt.NotEqual(t, id, other)
}

func TestMemoryValidate(t *testing.T) {
	valid := &model.Memory{
		ID:          model.NewMemoryID(),
		Title:       "title",
		Summary:     "summary",
		FullContent: "content",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	gt.NoError(t, valid.Validate())

	testCases := map[string]func(m *model.Memory){
		"empty ID":      func(m *model.Memory) { m.ID = "" },
		"empty title":   func(m *model.Memory) { m.Title = "" },
		"empty summary": func(m *model.Memory) { m.Summary = "" },
		"empty content": func(m *model.Memory) { m.FullContent = "" },
	}

	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			m := *valid
			mutate(&m)
			err := m.Validate()
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidArgument))
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	m := &model.Memory{
		ID:          model.NewMemoryID(),
		Title:       "short title",
		Summary:     "short summary",
		FullContent: strings.Repeat("x", 5000),
	}

	text := m.EmbeddingText()
	gt.S(t, text).Contains("short title")
	gt.S(t, text).Contains("short summary")
	// Content contribution is truncated
	gt.True(t, len(text) < 1200)
}
