package pdf

import (
	"context"
	"errors"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// OrderReceipt holds preformatted values; money strings already carry the currency prefix.
type OrderReceipt struct {
	OrgName     string
	OrderNumber string
	Status      string
	CreatedAt   string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Notes       string
	Items       []ReceiptItem
	Total       string
}

type ReceiptItem struct {
	Code      string
	Name      string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

var ErrEmptyReceipt = errors.New("receipt has no items")

func (p *MarotoProvider) GenerateOrderReceipt(ctx context.Context, data OrderReceipt) ([]byte, error) {
	if len(data.Items) == 0 {
		return nil, ErrEmptyReceipt
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Comprovante de pedido", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.OrgName, props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Pedido: "+data.OrderNumber, props.Text{Top: 0}),
			text.New("Data: "+data.CreatedAt, props.Text{Top: 5}),
			text.New("Status: "+data.Status, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Cliente", props.Text{Style: fontstyle.Bold}),
			text.New(data.ClientName, props.Text{Top: 5}),
			text.New(data.ClientEmail, props.Text{Top: 10}),
			text.New(data.ClientPhone, props.Text{Top: 15}),
		),
	)

	m.AddRow(10,
		text.NewCol(2, "Código", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Produto", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qtd", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unitário", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Subtotal", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range data.Items {
		m.AddRow(8,
			text.NewCol(2, item.Code, props.Text{Size: 9}),
			text.NewCol(4, item.Name, props.Text{Size: 9}),
			text.NewCol(2, strconv.Itoa(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Subtotal, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold, Top: 3}),
		text.NewCol(2, data.Total, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)

	if data.Notes != "" {
		m.AddRow(15,
			text.NewCol(12, "Observações: "+data.Notes, props.Text{Size: 9, Top: 3}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
