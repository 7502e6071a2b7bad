package invoice

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dsirine/StretchShop/internal/domain"
)

// Generator renders an invoice artifact for a paid order.
type Generator interface {
	Generate(ctx context.Context, order *domain.Order) (domain.Invoice, error)
}

type HTMLGenerator struct {
	dir  string
	tmpl *template.Template
}

func NewHTMLGenerator(dir string) (*HTMLGenerator, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice directory: %w", err)
	}
	return &HTMLGenerator{dir: dir, tmpl: tmpl}, nil
}

func (g *HTMLGenerator) Generate(_ context.Context, order *domain.Order) (domain.Invoice, error) {
	var sb strings.Builder
	data := struct {
		Order *domain.Order
		Date  string
		Lang  string
	}{
		Order: order,
		Date:  time.Now().Format("2006-01-02"),
		Lang:  order.Lang,
	}
	if err := g.tmpl.Execute(&sb, data); err != nil {
		return domain.Invoice{}, fmt.Errorf("render invoice: %w", err)
	}

	html := sb.String()
	path := filepath.Join(g.dir, fmt.Sprintf("invoice-%s.html", order.ID))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return domain.Invoice{}, fmt.Errorf("write invoice file: %w", err)
	}

	return domain.Invoice{HTML: html, Path: path}, nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head><meta charset="utf-8"><title>Invoice {{.Order.ID}}</title></head>
<body>
<h1>Invoice {{.Order.ID}}</h1>
<p>Date: {{.Date}}</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Price</th></tr>
{{range .Order.Items}}<tr><td>{{.Name.In $.Lang}}</td><td>{{.Amount}}</td><td>{{.Price}} {{$.Order.Prices.Currency.Code}}</td></tr>
{{end}}</table>
<p>Delivery: {{.Order.Prices.PriceDelivery}} {{.Order.Prices.Currency.Code}}</p>
<p>Payment: {{.Order.Prices.PricePayment}} {{.Order.Prices.Currency.Code}}</p>
<p>Total: {{.Order.Prices.PriceTotal}} {{.Order.Prices.Currency.Code}}</p>
<p>Paid: {{.Order.PaymentData.PaidAmountTotal}} {{.Order.Prices.Currency.Code}}</p>
</body>
</html>
`
