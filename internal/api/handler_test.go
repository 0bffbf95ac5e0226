package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/djlord-it/cronpeek/internal/domain"
)

func TestHandler_ListSchedules_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"custom", "?limit=50&offset=100", 50, 100},
		{"zero limit means default", "?limit=0", DefaultLimit, 0},
		{"limit at max", "?limit=1000", MaxLimit, 0},
		{"offset only", "?offset=7", DefaultLimit, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotLimit, gotOffset int
			store := &mockHandlerStore{
				listSchedulesFn: func(ctx context.Context, limit, offset int) ([]domain.Schedule, error) {
					called = true
					gotLimit, gotOffset = limit, offset
					return nil, nil
				},
			}

			w := do(newTestHandler(store), http.MethodGet, "/schedules"+tt.query, "")

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if !called {
				t.Fatal("store was not queried")
			}
			if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("store got limit=%d offset=%d, want %d/%d", gotLimit, gotOffset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestHandler_ListSchedules_PaginationErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantMsg string
	}{
		{"limit above max", "?limit=2000", "limit exceeds maximum of 1000"},
		{"negative limit", "?limit=-1", "limit must be a non-negative integer"},
		{"non-numeric limit", "?limit=abc", "limit must be a non-negative integer"},
		{"negative offset", "?offset=-1", "offset must be a non-negative integer"},
		{"non-numeric offset", "?offset=xyz", "offset must be a non-negative integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockHandlerStore{
				listSchedulesFn: func(ctx context.Context, limit, offset int) ([]domain.Schedule, error) {
					t.Error("store should not be queried on invalid pagination")
					return nil, nil
				},
			}

			w := do(newTestHandler(store), http.MethodGet, "/schedules"+tt.query, "")

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if resp := decodeError(t, w); resp.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}
