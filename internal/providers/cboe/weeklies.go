package cboe

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// symbolRE matches a listed symbol such as "AAPL", "BRK.B" or "BF/B".
var symbolRE = regexp.MustCompile(`^[A-Z][A-Z0-9./]{0,9}$`)

// ParseWeeklies extracts symbols from the weeklies download, which is CSV
// but has been served as an HTML table.
func ParseWeeklies(data []byte) ([]string, error) {
	if looksLikeHTML(data) {
		return parseHTML(data)
	}
	return parseCSV(data)
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<")) || bytes.Contains(head, []byte("<table"))
}

// parseCSV takes the first field of every record that looks like a symbol.
// Title and header rows never match.
func parseCSV(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var c collector
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if len(rec) > 0 {
			c.add(rec[0])
		}
	}
	return c.symbols, nil
}

func parseHTML(data []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var c collector
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		c.add(row.Find("td").First().Text())
	})
	return c.symbols, nil
}

type collector struct {
	seen    map[string]bool
	symbols []string
}

func (c *collector) add(field string) {
	sym := strings.TrimSpace(strings.Trim(strings.TrimSpace(field), `"`))
	if !symbolRE.MatchString(sym) {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if !c.seen[sym] {
		c.seen[sym] = true
		c.symbols = append(c.symbols, sym)
	}
}
