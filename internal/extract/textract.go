package extract

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Textract is an Extractor backed by AWS Textract's AnalyzeExpense API.
type Textract struct {
	client *textract.Client
}

// NewTextract creates a Textract extractor from an AWS config.
func NewTextract(cfg aws.Config) *Textract {
	return &Textract{client: textract.NewFromConfig(cfg)}
}

// Extract runs AnalyzeExpense against the S3 object and maps every detected
// line item to a LineItem. Unparseable fields degrade to zero values rather
// than failing the whole receipt.
func (t *Textract) Extract(ctx context.Context, bucket, key string) ([]LineItem, error) {
	resp, err := t.client.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "analyze expense")
	}

	var items []LineItem
	for _, doc := range resp.ExpenseDocuments {
		for _, group := range doc.LineItemGroups {
			for _, line := range group.LineItems {
				fields := make(map[string]string, len(line.LineItemExpenseFields))
				for _, f := range line.LineItemExpenseFields {
					if f.Type == nil || f.Type.Text == nil || f.ValueDetection == nil || f.ValueDetection.Text == nil {
						continue
					}
					fields[*f.Type.Text] = *f.ValueDetection.Text
				}
				items = append(items, fieldsToItem(fields))
			}
		}
	}
	return items, nil
}

// fieldsToItem maps Textract expense field types to a LineItem. The total
// is backfilled from unit price times quantity when the AMOUNT field is
// missing or zero.
func fieldsToItem(fields map[string]string) LineItem {
	desc := fields["ITEM"]
	if desc == "" {
		desc = fields["DESCRIPTION"]
	}
	if desc == "" {
		desc = "Item"
	}

	qty := parseQuantity(fields["QUANTITY"])
	unit := parseAmount(fields["PRICE"])
	total := parseAmount(fields["AMOUNT"])
	if total.IsZero() && !unit.IsZero() {
		total = unit.Mul(decimal.NewFromInt(int64(qty)))
	}

	return LineItem{
		Description: desc,
		Quantity:    qty,
		UnitPrice:   unit,
		TotalPrice:  total,
		Category:    fields["PRODUCT_CODE"],
	}
}

// parseAmount parses a detected monetary value, tolerating currency symbols
// and thousands separators. Unparseable values become zero.
func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseQuantity parses a detected quantity, defaulting to one unit.
func parseQuantity(s string) int {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsZero() {
		return 1
	}
	return int(d.IntPart())
}
