package usecase

import (
	"strings"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// exampleAttributes is the synthetic file shown to the model before the real
// query.
var exampleAttributes = domain.FileAttributes{
	domain.AttrFilename:     "work_report.pdf",
	domain.AttrFilePath:     "/input/work_report.pdf",
	domain.AttrFileSize:     2048,
	domain.AttrFileType:     ".pdf",
	domain.AttrMimeType:     "application/pdf",
	domain.AttrIsExecutable: false,
	domain.AttrMetadata: map[string]any{
		"created":  1768924483.5866325,
		"modified": 1768924483.5866325,
		"accessed": 1768924555.676632,
		"mode":     "0o100646",
	},
}

// BuildPrompt renders the one-shot categorization prompt. Identical inputs
// always produce identical text.
func BuildPrompt(categories domain.Categories, attrs domain.FileAttributes) string {
	hierarchical := categories.HasSubcategories()

	exampleCategories := []string{"Documents", "Images", "Videos", "Other"}
	exampleAnswer := "Documents"
	if hierarchical {
		exampleCategories[0] = "Documents (sub-categories: Work, Personal)"
		exampleAnswer = "Documents/Work"
	}

	var b strings.Builder
	b.WriteString("You are an expert at organizing files. \n")
	b.WriteString(" Given the following file information, choose the most appropriate category from the list of categories. \n")
	if hierarchical {
		b.WriteString("If a category has sub-categories, choose the most specific sub-category using the format 'Category/SubCategory'. \n")
		b.WriteString("If no sub-category fits, use just the main category name. \n")
		b.WriteString("Return only the category name (or category/sub-category), and nothing else.\n\n")
	} else {
		b.WriteString("Return only the category name, and nothing else.\n\n")
	}

	b.WriteString("Example:\n")
	b.WriteString("Categories: " + strings.Join(exampleCategories, ", ") + "\n")
	b.WriteString("File information: " + exampleAttributes.JSON() + "\n")
	b.WriteString("Category: " + exampleAnswer + "\n\n")

	b.WriteString("Now categorize this file:\n")
	b.WriteString("Categories: " + strings.Join(renderCategories(categories), ", ") + "\n")
	b.WriteString("File information: " + attrs.JSON() + "\n")
	b.WriteString("Category:")
	return b.String()
}

func renderCategories(categories domain.Categories) []string {
	items := categories.Items()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if len(item.Subcategories) == 0 {
			out = append(out, item.Name)
			continue
		}
		out = append(out, item.Name+" (sub-categories: "+strings.Join(item.Subcategories, ", ")+")")
	}
	return out
}
