package utils

import "testing"

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		total              int64
		wantPage, wantSize int
		wantPages          int64
		wantOffset         int
	}{
		{"defaults", 0, 0, 0, 1, 20, 0, 0},
		{"second page", 2, 10, 25, 2, 10, 3, 10},
		{"size capped", 1, 500, 1000, 1, 100, 10, 0},
		{"exact multiple", 3, 5, 15, 3, 5, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.size, tt.total)
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize {
				t.Fatalf("got page=%d size=%d, want page=%d size=%d", p.Page, p.PageSize, tt.wantPage, tt.wantSize)
			}
			if p.Pages != tt.wantPages {
				t.Fatalf("pages: got %d want %d", p.Pages, tt.wantPages)
			}
			if p.Offset() != tt.wantOffset || p.Limit() != tt.wantSize {
				t.Fatalf("offset/limit: got %d/%d", p.Offset(), p.Limit())
			}
		})
	}
}
