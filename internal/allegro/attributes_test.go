package allegro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAttributes(t *testing.T) {
	tests := []struct {
		name    string
		details *OfferDetails
		want    map[string]string
	}{
		{
			name:    "nil offer",
			details: nil,
			want:    map[string]string{},
		},
		{
			name:    "no category",
			details: &OfferDetails{ID: "1"},
			want:    map[string]string{},
		},
		{
			name: "category without description",
			details: &OfferDetails{
				Category: &Category{ID: "cat-77"},
			},
			want: map[string]string{"categoryId": "cat-77"},
		},
		{
			name: "internal id in description",
			details: &OfferDetails{
				Category: &Category{ID: "cat-77"},
				Description: &Description{Sections: []Section{
					{Items: []SectionItem{
						{Type: "TEXT", Content: "<h1>Product</h1>"},
						{Type: "TEXT", Content: "<p>// MAT-0042</p>"},
					}},
				}},
			},
			want: map[string]string{"categoryId": "cat-77", "internalId": "MAT-0042"},
		},
		{
			name: "first match wins across sections",
			details: &OfferDetails{
				Category: &Category{ID: "cat-1"},
				Description: &Description{Sections: []Section{
					{Items: []SectionItem{{Type: "TEXT", Content: "<p>// FIRST</p>"}}},
					{Items: []SectionItem{{Type: "TEXT", Content: "<p>// SECOND</p>"}}},
				}},
			},
			want: map[string]string{"categoryId": "cat-1", "internalId": "FIRST"},
		},
		{
			name: "empty sections and items tolerated",
			details: &OfferDetails{
				Category: &Category{ID: "cat-9"},
				Description: &Description{Sections: []Section{
					{},
					{Items: []SectionItem{{Type: "IMAGE"}}},
				}},
			},
			want: map[string]string{"categoryId": "cat-9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAttributes(tt.details))
		})
	}
}
