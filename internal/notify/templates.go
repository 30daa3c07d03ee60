package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/affiliate-ledger/internal/repo"
)

// orderData is the view model shared by both notices.
type orderData struct {
	ID         int64
	Product    string
	Title      string
	UnitPrice  string
	Quantity   int64
	Total      string
	Buyer      string
	BuyerEmail string
	Referrer   string
	Company    string
	Date       string
	Link       string
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders an integer yen amount with thousands separators.
func formatAmount(v int64) string {
	return "¥" + amountPrinter.Sprintf("%d", v)
}

func newOrderData(v *repo.OrderView, link string) orderData {
	ref := "-"
	if v.ReferrerName != nil && *v.ReferrerName != "" {
		ref = *v.ReferrerName
	}
	return orderData{
		ID:         v.PurchaseID,
		Product:    v.ProductName,
		Title:      v.Title,
		UnitPrice:  formatAmount(v.UnitPrice),
		Quantity:   v.Quantity,
		Total:      formatAmount(v.Total()),
		Buyer:      v.BuyerName,
		BuyerEmail: v.BuyerEmail,
		Referrer:   ref,
		Company:    v.CompanyName,
		Date:       v.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		Link:       link,
	}
}

const companyText = `You have a new order.

Order:     #{{.ID}}
Product:   {{.Product}}
Listing:   {{.Title}}
Price:     {{.UnitPrice}}
Quantity:  {{.Quantity}}
Total:     {{.Total}}
Buyer:     {{.Buyer}} <{{.BuyerEmail}}>
Referrer:  {{.Referrer}}
Placed:    {{.Date}}

Manage orders: {{.Link}}
`

const companyHTML = `<h2>New order #{{.ID}}</h2>
<table>
<tr><td>Product</td><td>{{.Product}}</td></tr>
<tr><td>Listing</td><td>{{.Title}}</td></tr>
<tr><td>Price</td><td>{{.UnitPrice}}</td></tr>
<tr><td>Quantity</td><td>{{.Quantity}}</td></tr>
<tr><td>Total</td><td>{{.Total}}</td></tr>
<tr><td>Buyer</td><td>{{.Buyer}} &lt;{{.BuyerEmail}}&gt;</td></tr>
<tr><td>Referrer</td><td>{{.Referrer}}</td></tr>
<tr><td>Placed</td><td>{{.Date}}</td></tr>
</table>
<p><a href="{{.Link}}">Manage orders</a></p>
`

const buyerText = `Thank you for your order, {{.Buyer}}.

Order:     #{{.ID}}
Product:   {{.Product}}
Seller:    {{.Company}}
Price:     {{.UnitPrice}}
Quantity:  {{.Quantity}}
Total:     {{.Total}}
Placed:    {{.Date}}

Your purchases: {{.Link}}
`

const buyerHTML = `<h2>Thank you for your order, {{.Buyer}}</h2>
<table>
<tr><td>Order</td><td>#{{.ID}}</td></tr>
<tr><td>Product</td><td>{{.Product}}</td></tr>
<tr><td>Seller</td><td>{{.Company}}</td></tr>
<tr><td>Price</td><td>{{.UnitPrice}}</td></tr>
<tr><td>Quantity</td><td>{{.Quantity}}</td></tr>
<tr><td>Total</td><td>{{.Total}}</td></tr>
<tr><td>Placed</td><td>{{.Date}}</td></tr>
</table>
<p><a href="{{.Link}}">Your purchases</a></p>
`

var (
	companyTextTmpl = texttemplate.Must(texttemplate.New("company.txt").Parse(companyText))
	companyHTMLTmpl = htmltemplate.Must(htmltemplate.New("company.html").Parse(companyHTML))
	buyerTextTmpl   = texttemplate.Must(texttemplate.New("buyer.txt").Parse(buyerText))
	buyerHTMLTmpl   = htmltemplate.Must(htmltemplate.New("buyer.html").Parse(buyerHTML))
)

// companyNotice renders the order notice sent to the listing's company.
func companyNotice(v *repo.OrderView, to, link string) (Message, error) {
	d := newOrderData(v, link)
	var txt, html bytes.Buffer
	if err := companyTextTmpl.Execute(&txt, d); err != nil {
		return Message{}, err
	}
	if err := companyHTMLTmpl.Execute(&html, d); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "New order #" + strconv.FormatInt(v.PurchaseID, 10),
		Text:    txt.String(),
		HTML:    html.String(),
	}, nil
}

// buyerReceipt renders the receipt sent to the buyer.
func buyerReceipt(v *repo.OrderView, link string) (Message, error) {
	d := newOrderData(v, link)
	var txt, html bytes.Buffer
	if err := buyerTextTmpl.Execute(&txt, d); err != nil {
		return Message{}, err
	}
	if err := buyerHTMLTmpl.Execute(&html, d); err != nil {
		return Message{}, err
	}
	return Message{
		To:      v.BuyerEmail,
		Subject: "Your order #" + strconv.FormatInt(v.PurchaseID, 10),
		Text:    txt.String(),
		HTML:    html.String(),
	}, nil
}
