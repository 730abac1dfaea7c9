package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary() Summary {
	return Summary{
		Number:       "6769-2583-4952",
		CustomerName: "Ada Lovelace",
		Email:        "ada@example.com",
		Address:      "1 Main St, Springfield, IL, 62701",
		Currency:     "USD",
		Total:        "300.00",
		Items: []SummaryLine{
			{Title: "Silver ring", Price: "100.00"},
			{Title: "Turquoise pendant", Price: "200.00"},
		},
		StatusURL: "https://shop.example.com/checkout/status/abc",
	}
}

func TestRender_OrderReceipt(t *testing.T) {
	subject, body, err := Render("order_receipt", testSummary())

	require.NoError(t, err)
	assert.Equal(t, "Your order 6769-2583-4952", subject)
	assert.Contains(t, body, "Silver ring")
	assert.Contains(t, body, "Total 300.00 USD")
	assert.Contains(t, body, "https://shop.example.com/checkout/status/abc")
	assert.NotContains(t, body, "payment receipt")
}

func TestRender_ShipmentTracking(t *testing.T) {
	s := testSummary()
	s.Carrier = "USPS"
	s.TrackingNumber = "9400 1000 0000 0000 0000 00"

	subject, body, err := Render("shipment_tracking", s)

	require.NoError(t, err)
	assert.Equal(t, "Tracking information for #6769-2583-4952", subject)
	assert.Contains(t, body, "USPS")
	assert.Contains(t, body, "9400 1000 0000 0000 0000 00")
}

func TestRender_EscapesCustomerInput(t *testing.T) {
	s := testSummary()
	s.CustomerName = `<script>alert("x")</script>`

	_, body, err := Render("admin_order_alert", s)

	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := Render("newsletter", testSummary())
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestService_Send(t *testing.T) {
	svc := NewService("mail.local", "1025", "shop@example.com")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := svc.Send("ada@example.com", "Hello", "<p>hi</p>")

	require.NoError(t, err)
	assert.Equal(t, "mail.local:1025", gotAddr)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: shop@example.com\r\nTo: ada@example.com\r\nSubject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\n<p>hi</p>"))
}

func TestService_Send_Error(t *testing.T) {
	svc := NewService("mail.local", "1025", "shop@example.com")
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := svc.Send("ada@example.com", "Hello", "body")

	assert.ErrorContains(t, err, "connection refused")
}
