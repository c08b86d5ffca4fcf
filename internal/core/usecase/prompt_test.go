package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

func TestBuildPromptHierarchical(t *testing.T) {
	cats, err := domain.NewCategories([]domain.Category{
		{Name: "Documents", Subcategories: []string{"Work", "Personal"}},
		{Name: "Images"},
	})
	require.NoError(t, err)

	prompt := BuildPrompt(cats, domain.FileAttributes{domain.AttrFilename: "report.pdf"})

	assert.Contains(t, prompt, "Categories: Documents (sub-categories: Work, Personal), Images, Other\n")
	assert.Contains(t, prompt, "'Category/SubCategory'")
	assert.Contains(t, prompt, "Category: Documents/Work\n")
	assert.Contains(t, prompt, `File information: {"filename":"report.pdf"}`)
	assert.Equal(t, 1, strings.Count(prompt, "Example:"))
	assert.True(t, strings.HasSuffix(prompt, "Category:"))
}

func TestBuildPromptFlat(t *testing.T) {
	cats, err := domain.CategoriesFromList([]string{"Documents", "Images"})
	require.NoError(t, err)

	prompt := BuildPrompt(cats, domain.FileAttributes{domain.AttrFilename: "x.txt"})

	assert.Contains(t, prompt, "Return only the category name, and nothing else.")
	assert.NotContains(t, prompt, "sub-categories")
	assert.Contains(t, prompt, "Categories: Documents, Images, Videos, Other\n")
	assert.Contains(t, prompt, "Category: Documents\n\n")
	assert.Contains(t, prompt, "work_report.pdf")
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	cats, err := domain.CategoriesFromMap(map[string][]string{"B": {"x"}, "A": nil})
	require.NoError(t, err)
	attrs := domain.FileAttributes{"z": 1, "a": "b", domain.AttrFilename: "f", "m": map[string]any{"y": 2, "x": 1}}

	first := BuildPrompt(cats, attrs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildPrompt(cats, attrs))
	}
	assert.Contains(t, first, `{"a":"b","filename":"f","m":{"x":1,"y":2},"z":1}`)
}
