package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ====== Status Transition Tests ======

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUnpaid, StatusPaid, true},
		{StatusUnpaid, StatusCanceled, true},
		{StatusUnpaid, StatusShipped, false},
		{StatusPaid, StatusShipped, true},
		{StatusPaid, StatusCanceled, false},
		{StatusShipped, StatusCanceled, false},
		{StatusCanceled, StatusPaid, false},
		{Status(9), StatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.Equal(t, tt.want, o.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_TransitionError(t *testing.T) {
	tests := []struct {
		name     string
		from, to Status
		want     error
	}{
		{"pay canceled order", StatusCanceled, StatusPaid, ErrOrderCanceled},
		{"cancel shipped order", StatusShipped, StatusCanceled, ErrOrderShipped},
		{"pay twice", StatusPaid, StatusPaid, ErrOrderAlreadyPaid},
		{"cancel paid order", StatusPaid, StatusCanceled, ErrOrderAlreadyPaid},
		{"ship unpaid order", StatusUnpaid, StatusShipped, ErrOrderNotPaid},
		{"reopen paid order", StatusPaid, StatusUnpaid, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.ErrorIs(t, o.transitionError(tt.to), tt.want)
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "unpaid", StatusUnpaid.String())
	assert.Equal(t, "status(7)", Status(7).String())
}

// ====== Contact Tests ======

func validContact() Contact {
	return Contact{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		StreetAddress: "1 Main St", City: "Portland", State: "OR", ZipCode: "97201",
	}
}

func TestContact_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Contact)
		wantErr bool
	}{
		{"valid", func(c *Contact) {}, false},
		{"zip plus four", func(c *Contact) { c.ZipCode = "97201-1234" }, false},
		{"missing first name", func(c *Contact) { c.FirstName = "" }, true},
		{"bad email", func(c *Contact) { c.Email = "not-an-email" }, true},
		{"long state", func(c *Contact) { c.State = "ORE" }, true},
		{"bad zip", func(c *Contact) { c.ZipCode = "9720" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validContact()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidContact)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestContact_ValidateReportsEveryProblem(t *testing.T) {
	err := Contact{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first_name is required")
	assert.Contains(t, err.Error(), "zip_code is required")
}

func TestContact_Normalize(t *testing.T) {
	c := Contact{FirstName: "  Ada ", State: " or "}.Normalize()
	assert.Equal(t, "Ada", c.FirstName)
	assert.Equal(t, "OR", c.State)
}

// ====== Totals Tests ======

func TestOrder_Units(t *testing.T) {
	o := &Order{
		Currency: "USD",
		Items: []Item{
			{ItemID: "a", Price: decimal.RequireFromString("19.99")},
			{ItemID: "b", Price: decimal.RequireFromString("0.015")},
		},
	}
	currency, amount := o.Units()
	assert.Equal(t, "USD", currency)
	assert.Equal(t, int64(2001), amount)
	assert.Equal(t, []string{"a", "b"}, o.ItemIDs())
}
