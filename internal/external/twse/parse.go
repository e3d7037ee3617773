package twse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"

	"github.com/wonny/movers/internal/movers"
)

// quoteHeaders identify the per-security quote table among the report tables
var quoteHeaders = []string{"證券代號", "收盤價"}

// miIndexResponse covers both MI_INDEX layouts: the legacy numbered
// fieldsN/dataN pairs and the newer tables array.
type miIndexResponse struct {
	Stat    string          `json:"stat"`
	Date    string          `json:"date"`
	Fields9 []string        `json:"fields9"`
	Data9   [][]interface{} `json:"data9"`
	Fields5 []string        `json:"fields5"`
	Data5   [][]interface{} `json:"data5"`
	Tables  []miIndexTable  `json:"tables"`
}

type miIndexTable struct {
	Title  string          `json:"title"`
	Fields []string        `json:"fields"`
	Data   [][]interface{} `json:"data"`
}

// ParseJSON decodes an MI_INDEX JSON body into a raw feed.
// A body that does not decode is passed through jsonrepair once before it is
// rejected as malformed.
func ParseJSON(body []byte) (*movers.RawFeed, error) {
	resp, err := decodeMIIndex(body)
	if err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(body))
		if rerr != nil {
			return nil, &movers.MalformedFeedError{Reason: "undecodable JSON body", Err: err}
		}
		if resp, err = decodeMIIndex([]byte(repaired)); err != nil {
			return nil, &movers.MalformedFeedError{Reason: "undecodable JSON body", Err: err}
		}
	}

	if stat := strings.TrimSpace(resp.Stat); !strings.EqualFold(stat, "OK") {
		return nil, &movers.EmptyFeedError{Source: Source, Reason: stat}
	}

	fields, data, ok := resp.quoteTable()
	if !ok {
		return nil, &movers.MalformedFeedError{Reason: "quote table not found"}
	}
	if len(data) == 0 {
		return nil, &movers.EmptyFeedError{Source: Source, Reason: "quote table has no rows"}
	}

	rows := make([][]any, len(data))
	for i, raw := range data {
		row := make([]any, len(raw))
		for j, cell := range raw {
			if s, ok := cell.(string); ok && strings.Contains(s, "<") {
				cell = SignText(s)
			}
			row[j] = cell
		}
		rows[i] = row
	}

	return &movers.RawFeed{Source: Source, Fields: fields, Rows: rows}, nil
}

func decodeMIIndex(body []byte) (*miIndexResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var resp miIndexResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// quoteTable picks the per-security table, preferring the tables layout.
func (r *miIndexResponse) quoteTable() ([]string, [][]interface{}, bool) {
	for _, t := range r.Tables {
		if hasHeaders(t.Fields) {
			return t.Fields, t.Data, true
		}
	}
	if hasHeaders(r.Fields9) {
		return r.Fields9, r.Data9, true
	}
	if hasHeaders(r.Fields5) {
		return r.Fields5, r.Data5, true
	}
	return nil, nil, false
}

func hasHeaders(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.TrimSpace(f)] = true
	}
	for _, h := range quoteHeaders {
		if !set[h] {
			return false
		}
	}
	return true
}

// ParseHTML decodes the HTML rendition of MI_INDEX. The quote table is the
// first table whose header row names the security code and closing price.
func ParseHTML(body []byte) (*movers.RawFeed, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &movers.MalformedFeedError{Reason: "undecodable HTML body", Err: err}
	}

	var (
		fields []string
		rows   [][]any
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := cellTexts(tr)
			if fields == nil {
				if hasHeaders(cells) {
					fields = cells
				}
				return
			}
			if len(cells) != len(fields) {
				return
			}
			row := make([]any, len(cells))
			for i, c := range cells {
				row[i] = c
			}
			rows = append(rows, row)
		})
		return fields == nil
	})

	if fields == nil {
		if doc.Find("table").Length() == 0 {
			return nil, &movers.EmptyFeedError{Source: Source, Reason: "no tables in response"}
		}
		return nil, &movers.MalformedFeedError{Reason: "quote table not found"}
	}
	if len(rows) == 0 {
		return nil, &movers.EmptyFeedError{Source: Source, Reason: "quote table has no rows"}
	}

	return &movers.RawFeed{Source: Source, Fields: fields, Rows: rows}, nil
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}

// SignText extracts the visible text of a markup fragment such as
// `<p style= color:red>+</p>`. Plain text is returned trimmed.
func SignText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
