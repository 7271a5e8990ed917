package pdf

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestGenerateOrderReceipt(t *testing.T) {
	out, err := NewMaroto().GenerateOrderReceipt(context.Background(), OrderReceipt{
		OrgName:     "Main",
		OrderNumber: "PED-01HX",
		Status:      "pending",
		CreatedAt:   "01/02/2024 10:00",
		ClientName:  "Ana",
		Items: []ReceiptItem{
			{Code: "A1", Name: "Camisa Azul", Quantity: 2, UnitPrice: "R$ 50.00", Subtotal: "R$ 100.00"},
		},
		Total: "R$ 100.00",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected PDF header")
	}
}

func TestGenerateOrderReceiptRequiresItems(t *testing.T) {
	_, err := NewMaroto().GenerateOrderReceipt(context.Background(), OrderReceipt{})
	if !errors.Is(err, ErrEmptyReceipt) {
		t.Fatalf("expected ErrEmptyReceipt, got %v", err)
	}
}
