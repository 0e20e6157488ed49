package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/reports"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/opsdesk/fulfillment-service/pkg/mailer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var orderExportHeader = []string{
	"Order ID",
	"Date Recieved",
	"Date Dispatched",
	"Country",
	"Channel",
	"Tracking Number",
	"Shipping Service",
	"Currency",
	"Total Paid",
	"Total Paid (GBP)",
	"Weight",
	"Channel Fee",
	"Purchase Price",
	"Profit",
	"Profit Percentage",
}

type reportsUseCase struct {
	repo     reports.Repository
	mailer   mailer.Mailer
	clock    clock.Clock
	logger   logger.Logger
	location *time.Location
	emailTo  string
}

func NewReportsUseCase(repo reports.Repository, mail mailer.Mailer, clk clock.Clock, log logger.Logger, emailTo string) reports.UseCase {
	return &reportsUseCase{
		repo:     repo,
		mailer:   mail,
		clock:    clk,
		logger:   log,
		location: time.Local,
		emailTo:  emailTo,
	}
}

func (uc *reportsUseCase) OrderExportCSV(ctx context.Context, receivedAfter, receivedBefore time.Time) ([]byte, error) {
	orders, err := uc.repo.OrdersForExport(ctx, receivedAfter, receivedBefore)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(orderExportHeader); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := w.Write(orderExportRow(&orders[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orderExportRow(o *model.Order) []string {
	dispatched := "UNDISPATCHED"
	if o.DispatchedAt != nil {
		dispatched = o.DispatchedAt.Format(dateLayout)
	}
	country := ""
	if o.Country != nil {
		country = o.Country.Name
	}
	channel := ""
	if o.Channel != nil {
		channel = o.Channel.Name
	}
	tracking := ""
	if o.TrackingNumber != nil {
		tracking = *o.TrackingNumber
	}
	service := ""
	if o.ShippingService != nil {
		service = o.ShippingService.Name
	}
	currency := ""
	if o.CurrencyCode != nil {
		currency = *o.CurrencyCode
	}
	return []string{
		o.OrderID,
		o.ReceivedAt.Format(dateLayout),
		dispatched,
		country,
		channel,
		tracking,
		service,
		currency,
		penceOrEmpty(o.TotalPaid),
		penceOrEmpty(o.TotalPaidGBP),
		strconv.Itoa(o.TotalWeight()),
		pence(o.ChannelFeePaid()),
		pence(o.PurchasePrice()),
		pence(o.Profit()),
		strconv.FormatInt(o.ProfitPercentage(), 10),
	}
}

func pence(p int64) string {
	return decimal.NewFromInt(p).Div(decimal.NewFromInt(100)).StringFixed(2)
}

func penceOrEmpty(p *int64) string {
	if p == nil {
		return ""
	}
	return pence(*p)
}

func (uc *reportsUseCase) SendMonthlyPurchaseReport(ctx context.Context) error {
	yesterday := uc.clock.Now().In(uc.location).AddDate(0, 0, -1)
	exportDate := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, uc.location)

	export := &model.PurchaseExport{
		ID:         uuid.New().String(),
		ExportDate: exportDate,
		CreatedAt:  uc.clock.Now(),
	}
	if err := uc.repo.CreateExportWithPurchases(ctx, export); err != nil {
		return err
	}

	purchases, err := uc.repo.PurchasesForExport(ctx, export.ID)
	if err != nil {
		return err
	}
	subject := "Staff purchase report " + exportDate.Format(dateLayout)
	if len(purchases) == 0 {
		uc.logger.Info("no staff purchases to report",
			zap.String("export_date", exportDate.Format(dateLayout)))
		return uc.mailer.Send(uc.emailTo, subject,
			"There are no staff purchases to report for this period.")
	}

	report, err := renderPurchaseCSV(purchases)
	if err != nil {
		return err
	}
	return uc.mailer.Send(uc.emailTo, subject,
		"Attached is the staff purchase report.",
		mailer.Attachment{
			Filename:    "staff_purchases_" + exportDate.Format(dateLayout) + ".csv",
			ContentType: "text/csv",
			Data:        report,
		})
}

// renderPurchaseCSV groups rows per staff member with a blank separator row
// between groups; each group's final row carries the staff total in the last
// column.
func renderPurchaseCSV(purchases []model.StaffPurchase) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Staff", "SKU", "Name", "Quantity", "Price", "Total"}); err != nil {
		return nil, err
	}

	flush := func(rows [][]string, total int64) error {
		for i, row := range rows {
			if i == len(rows)-1 {
				row[5] = pence(total)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return w.Write([]string{"", "", "", "", "", ""})
	}

	var (
		rows    [][]string
		total   int64
		staffID int64 = -1
	)
	for _, p := range purchases {
		if p.StaffID != staffID && staffID != -1 {
			if err := flush(rows, total); err != nil {
				return nil, err
			}
			rows, total = nil, 0
		}
		staffID = p.StaffID
		name := ""
		if p.Staff != nil {
			name = p.Staff.Name
		}
		rows = append(rows, []string{
			name,
			p.SKU,
			p.Name,
			strconv.Itoa(p.Quantity),
			pence(p.Price * int64(p.Quantity)),
			"",
		})
		total += p.Price * int64(p.Quantity)
	}
	if len(rows) > 0 {
		if err := flush(rows, total); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
