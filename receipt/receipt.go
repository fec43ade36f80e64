package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"storefront/models"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

var ErrNotPaid = errors.New("order is not paid")

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderItems(ctx context.Context, id string) ([]models.OrderItem, error)
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Render builds the PDF receipt of a paid order. The QR code points at
// orderURL.
func Render(order models.Order, items []models.OrderItem, orderURL string) ([]byte, error) {
	if order.Status != models.OrderPaid {
		return nil, ErrNotPaid
	}

	qrPNG, err := qrcode.Encode(orderURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+order.OrderID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Order: "+order.OrderID)
	pdf.Ln(7)
	if order.PaidAt != nil {
		pdf.Cell(0, 7, "Paid: "+order.PaidAt.Format("2006-01-02 15:04 MST"))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, tr("Customer: "+strings.TrimSpace(order.Customer.FirstName+" "+order.Customer.LastName)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Delivery: "+order.Delivery.City+", "+order.Delivery.Warehouse))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(95, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range items {
		pdf.CellFormat(95, 7, tr(it.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprint(it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, money(it.Price), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(it.Subtotal), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(145, 10, "Total, UAH", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 10, money(order.TotalAmount), "T", 1, "R", false, 0, "")

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 15, 35, 35, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type Handler struct {
	orders  OrderReader
	baseURL string
}

func NewHandler(orders OrderReader, baseURL string) *Handler {
	return &Handler{orders: orders, baseURL: strings.TrimRight(baseURL, "/")}
}

// GET /api/orders/:id/receipt
func (h *Handler) Download(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		log.Printf("Receipt %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if order.Status != models.OrderPaid {
		utils.RespondWithError(w, http.StatusConflict, "receipt is available once the order is paid")
		return
	}
	items, err := h.orders.GetOrderItems(r.Context(), id)
	if err != nil {
		log.Printf("Receipt %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	doc, err := Render(order, items, h.baseURL+"/api/orders/"+id)
	if err != nil {
		log.Printf("Receipt %s: %v", id, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+id+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}
