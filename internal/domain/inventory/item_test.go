package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestItem_Available(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusAvailable, true},
		{StatusReserved, false},
		{StatusSold, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			item := &Item{Status: tt.status}
			assert.Equal(t, tt.expected, item.Available())
		})
	}
}

func TestItem_Validate(t *testing.T) {
	valid := func() Item {
		return Item{ID: "item-1", Slug: "silver-ring", Price: decimal.NewFromInt(100), Currency: "USD"}
	}

	tests := []struct {
		name    string
		mutate  func(i *Item)
		wantErr bool
	}{
		{"valid", func(i *Item) {}, false},
		{"missing id", func(i *Item) { i.ID = "" }, true},
		{"missing slug", func(i *Item) { i.Slug = "" }, true},
		{"negative price", func(i *Item) { i.Price = decimal.NewFromInt(-1) }, true},
		{"bad currency", func(i *Item) { i.Currency = "dollars" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid()
			tt.mutate(&item)
			err := item.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidItem)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
