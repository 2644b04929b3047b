package batch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"domainworth-backend/internal/valuation"
)

// Row is one uploaded CSV row, either an object keyed by header or a
// positional list of values.
type Row struct {
	Object map[string]any
	List   []any
}

// DecodeRow parses a raw JSON row into its object or positional form.
func DecodeRow(raw json.RawMessage) (Row, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []any
		if err := json.Unmarshal(raw, &list); err != nil {
			return Row{}, fmt.Errorf("decode row: %w", err)
		}
		return Row{List: list}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Row{}, fmt.Errorf("decode row: %w", err)
	}
	return Row{Object: obj}, nil
}

// DecodeRows parses every raw row, dropping rows that fail to parse.
func DecodeRows(raw []json.RawMessage) []Row {
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		row, err := DecodeRow(r)
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// Domain returns the row's domain value. Object rows read the mapped column,
// positional rows read the first cell.
func (r Row) Domain(domainColumn string) string {
	if r.Object != nil {
		return cellString(r.Object[domainColumn])
	}
	if len(r.List) > 0 {
		return cellString(r.List[0])
	}
	return ""
}

// Cell returns the row's value for a header at the given positional index.
func (r Row) Cell(header string, index int) string {
	if r.Object != nil {
		return cellString(r.Object[header])
	}
	if index >= 0 && index < len(r.List) {
		return cellString(r.List[index])
	}
	return ""
}

// ExtractDomains pulls the domain out of every row, dropping empties.
func ExtractDomains(rows []Row, domainColumn string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if d := strings.TrimSpace(row.Domain(domainColumn)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// ResolveHeaders picks the output headers: the caller's headers when given,
// else the first object row's keys, else just the domain column.
func ResolveHeaders(rows []Row, csvHeaders []string, domainColumn string) []string {
	if len(csvHeaders) > 0 {
		return csvHeaders
	}
	for _, row := range rows {
		if row.Object != nil {
			keys := make([]string, 0, len(row.Object))
			for k := range row.Object {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return keys
		}
		break
	}
	return []string{domainColumn}
}

// Appended valuation columns in the result file.
var valuationHeaders = []string{"Marketplace_Value", "Brokerage_Value", "Auction_Value"}

// Reconcile joins valuations back onto the original rows and renders the
// result CSV. Rows without a domain or without a qualifying valuation are
// skipped and counted. Every cell is quoted.
func Reconcile(rows []Row, headers []string, domainColumn string, valuations map[string]valuation.Valuation) ([]byte, int, int) {
	var b strings.Builder
	writeHeaderLine(&b, headers)

	written := 0
	skipped := 0
	for _, row := range rows {
		domain := strings.TrimSpace(row.Domain(domainColumn))
		if domain == "" {
			skipped++
			continue
		}
		val, ok := valuations[strings.ToLower(domain)]
		if !ok {
			skipped++
			continue
		}

		cells := make([]string, 0, len(headers)+len(valuationHeaders))
		for i, header := range headers {
			cells = append(cells, quoteCell(row.Cell(header, i)))
		}
		cells = append(cells,
			quoteCell(formatValue(val.Marketplace)),
			quoteCell(formatValue(val.Brokerage)),
			quoteCell(formatValue(val.Auction)),
		)

		b.WriteString("\n")
		b.WriteString(strings.Join(cells, ","))
		written++
	}
	return []byte(b.String()), written, skipped
}

func writeHeaderLine(b *strings.Builder, headers []string) {
	all := make([]string, 0, len(headers)+len(valuationHeaders))
	all = append(all, headers...)
	all = append(all, valuationHeaders...)
	b.WriteString(strings.Join(all, ","))
}

func quoteCell(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
