package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ppiankov/realitycheck/internal/model"
)

const claimColumnWidth = 60

// Table buffers rows and renders them borderless
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a table writing to w
func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	return &Table{table: table, header: headers}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render writes the header and all rows
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return err
	}
	return t.table.Render()
}

// ClaimsTable renders claims one per row with their counters
func ClaimsTable(w io.Writer, claims []model.PublishedClaim) error {
	t := NewTable(w, []string{"ID", "Source", "Date", "Shown", "Reported", "True claim", "False claim"})
	for _, c := range claims {
		t.AddRow([]string{
			shortID(c.ID),
			c.Source,
			model.DateString(c.Date),
			strconv.Itoa(c.TimesShown),
			strconv.Itoa(c.TimesReported),
			Ellipsize(c.TrueClaim, claimColumnWidth),
			Ellipsize(c.FalseClaim, claimColumnWidth),
		})
	}
	return t.Render()
}

// SourcesTable renders the configured feeds
func SourcesTable(w io.Writer, sources []model.Source) error {
	t := NewTable(w, []string{"Name", "Kind", "URL"})
	for _, s := range sources {
		t.AddRow([]string{s.Name, string(s.Kind), s.URL})
	}
	return t.Render()
}

// Ellipsize shortens s to max runes, marking the cut
func Ellipsize(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max <= 1 || len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
