package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	"github.com/opentill/terminal/pkg/money"
	"github.com/opentill/terminal/pkg/printer"
	"github.com/opentill/terminal/pkg/utils"
)

// PrintService renders kitchen tickets and customer receipts to the
// configured thermal printer. It is registered as a kitchen notifier so
// every order change on a kitchen-display terminal produces a ticket.
type PrintService struct {
	dev   printer.Printer
	width int
	log   zerolog.Logger
}

// NewPrintService creates a new print service
func NewPrintService(dev printer.Printer, width int, log zerolog.Logger) *PrintService {
	return &PrintService{
		dev:   dev,
		width: width,
		log:   log.With().Str("component", "printer").Logger(),
	}
}

// NotifyOrder prints a kitchen ticket for one order change. Printing is best
// effort; a failed print never blocks order processing.
func (s *PrintService) NotifyOrder(_ context.Context, change *OrderChange) {
	doc := s.renderTicket(change)
	if err := s.dev.Print(doc); err != nil {
		s.log.Error().Err(err).Str("ref", utils.ShortRef(change.Sale.Ref)).Msg("kitchen ticket print failed")
	}
}

func (s *PrintService) renderTicket(change *OrderChange) []byte {
	doc := printer.NewDocument(s.width)

	doc.SetAlign(printer.AlignCenter).SetFontSize(printer.FontDouble)
	switch change.Kind {
	case enum.OrderChangeUpdated:
		doc.Text("** UPDATED **")
	case enum.OrderChangeCancelled:
		doc.Text("** CANCELLED **")
	default:
		doc.Text("ORDER")
	}
	doc.SetFontSize(printer.FontNormal).SetAlign(printer.AlignLeft)

	doc.Separator('-')
	doc.TextF("Order #%d  Sale %s", change.Order.ID, utils.ShortRef(change.Sale.Ref))
	if change.Order.TableNumber != "" {
		doc.SetBold(true).TextF("Table %s", change.Order.TableNumber).SetBold(false)
	}
	doc.Text(change.Order.ProcessedAt.Local().Format("15:04:05"))
	doc.Separator('-')

	byRef := make(map[string]*entity.LineItem, len(change.Sale.Items))
	for i := range change.Sale.Items {
		byRef[change.Sale.Items[i].Ref] = &change.Sale.Items[i]
	}
	for _, ref := range change.Order.ItemRefs() {
		item, ok := byRef[ref]
		if !ok {
			continue
		}
		doc.TextF("%dx %s", item.Qty, item.Name)
		for _, mod := range item.Modifiers {
			doc.TextF("   + %s", mod.Name)
		}
	}

	if change.Sale.Notes != "" {
		doc.Separator('-')
		doc.Text(change.Sale.Notes)
	}

	doc.FeedLines(3).Cut()
	return doc.Bytes()
}

// PrintReceipt renders and prints a customer receipt for a completed sale.
func (s *PrintService) PrintReceipt(sale *entity.Sale, cfg *entity.TerminalConfig) error {
	doc := printer.NewDocument(s.width)

	doc.SetAlign(printer.AlignCenter).SetBold(true)
	doc.Text("TAX RECEIPT")
	doc.SetBold(false).SetAlign(printer.AlignLeft)
	doc.TextF("Sale %s", utils.ShortRef(sale.Ref))
	doc.Text(sale.ProcessedAt.Local().Format("2006-01-02 15:04"))
	doc.Separator('-')

	for _, item := range sale.Items {
		doc.ItemLine(item.Qty, item.Name, money.Format(item.Price))
	}

	doc.Separator('-')
	doc.KeyValue("Subtotal", money.Format(sale.Subtotal))
	if sale.DiscountAmount > 0 {
		doc.KeyValue(fmt.Sprintf("Discount %.0f%%", sale.Discount), "-"+money.Format(sale.DiscountAmount))
	}
	doc.KeyValue("Tax "+cfg.CurrencyCode, money.Format(sale.Tax))
	if sale.Rounding != 0 {
		doc.KeyValue("Rounding", money.Format(sale.Rounding))
	}
	doc.SetBold(true).KeyValue("TOTAL", money.Format(sale.Total)).SetBold(false)

	for _, p := range sale.Payments {
		doc.KeyValue(string(p.Method), money.Format(p.Amount))
		if p.Method.IsCash() && p.Change > 0 {
			doc.KeyValue("Change", money.Format(p.Change))
		}
	}

	if sale.VoidData != nil {
		doc.Separator('-')
		doc.SetAlign(printer.AlignCenter).Text("*** VOIDED ***").SetAlign(printer.AlignLeft)
	}

	doc.FeedLines(3).Cut()

	if err := s.dev.Print(doc.Bytes()); err != nil {
		return fmt.Errorf("receipt print failed: %w", err)
	}
	return nil
}
