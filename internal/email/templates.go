package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// Summary is the data every order email is rendered from.
type Summary struct {
	Number         string
	CustomerName   string
	Email          string
	Phone          string
	Address        string
	Currency       string
	Total          string
	Items          []SummaryLine
	StatusURL      string
	ReceiptURL     string
	Carrier        string
	TrackingNumber string
}

type SummaryLine struct {
	Title string
	Price string
}

const layout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #2f3e46; padding: 24px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 22px;">{{block "title" .}}{{end}}</h1>
	</div>
	<div style="background: #fff; padding: 24px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		{{block "content" .}}{{end}}
		<hr style="border: none; border-top: 1px solid #eee; margin: 24px 0;">
		<p style="font-size: 12px; color: #999; margin-bottom: 0;">This message was sent automatically. Reply to this address if you have any questions.</p>
	</div>
</body>
</html>`

const itemsTable = `{{define "items"}}
		<table style="width: 100%; border-collapse: collapse; margin: 16px 0;">
			<tbody>
			{{range .Items}}
				<tr>
					<td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Title}}</td>
					<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">{{.Price}}</td>
				</tr>
			{{end}}
			</tbody>
		</table>
		<p style="text-align: right; font-size: 18px; font-weight: bold;">Total {{.Total}} {{.Currency}}</p>
{{end}}`

var bodies = map[string]string{
	"order_receipt": `{{define "title"}}Thank you for your order{{end}}
{{define "content"}}
		<p>Hi {{.CustomerName}}, we received your payment for order <strong style="font-family: monospace;">{{.Number}}</strong>.</p>
		{{template "items" .}}
		<p>Shipping to: {{.Address}}</p>
		{{if .StatusURL}}<p><a href="{{.StatusURL}}">Check your order status</a></p>{{end}}
		{{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">View your payment receipt</a></p>{{end}}
{{end}}`,
	"admin_order_alert": `{{define "title"}}New order {{.Number}}{{end}}
{{define "content"}}
		<p>{{.CustomerName}} ({{.Email}}{{if .Phone}}, {{.Phone}}{{end}}) paid for order {{.Number}}.</p>
		{{template "items" .}}
		<p>Ship to: {{.Address}}</p>
{{end}}`,
	"shipment_tracking": `{{define "title"}}Your order has shipped{{end}}
{{define "content"}}
		<p>Hi {{.CustomerName}}, order <strong style="font-family: monospace;">{{.Number}}</strong> is on its way.</p>
		<p>Carrier: {{.Carrier}}<br>Tracking number: <strong>{{.TrackingNumber}}</strong></p>
		{{if .StatusURL}}<p><a href="{{.StatusURL}}">Check your order status</a></p>{{end}}
{{end}}`,
}

var subjects = map[string]string{
	"order_receipt":     "Your order %s",
	"admin_order_alert": "New order %s",
	"shipment_tracking": "Tracking information for #%s",
}

var templates = func() map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		t := template.Must(template.New(name).Parse(layout))
		template.Must(t.Parse(itemsTable))
		parsed[name] = template.Must(t.Parse(body))
	}
	return parsed
}()

// Render builds the subject and HTML body of the named template.
func Render(name string, data Summary) (string, string, error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return fmt.Sprintf(subjects[name], data.Number), buf.String(), nil
}
