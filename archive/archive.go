// Package archive exports a price series as one JSON file per calendar month
// and reads such exports back.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jwriter"

	"github.com/tradetracker/btcprice/series"
)

const fileExt = ".json"

// MonthKey names the month containing d, e.g. 202101.
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d%02d", d.Year, int(d.Month))
}

func monthOf(e series.Entry) string {
	return MonthKey(civil.DateOf(e.Interval.Start()))
}

func recordOf(e series.Entry) record {
	r := record{
		Interval: e.Interval.Unix(),
		Price:    e.Price.StringFixed(series.PriceScale),
	}
	if !e.TradeTime.IsZero() {
		ts := e.TradeTime.Unix()
		r.TradeTime = &ts
	}
	return r
}

// Write stores s in dir as YYYYMM.json files, one per UTC month that has at
// least one entry. Each file is replaced atomically. It returns the names of
// the files written.
func Write(dir string, s *series.Series) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var (
		names   []string
		month   string
		records monthFile
	)
	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		name := month + fileExt
		err := series.AtomicWrite(filepath.Join(dir, name), func(w io.Writer) error {
			jw := jwriter.Writer{}
			records.MarshalEasyJSON(&jw)
			_, err := jw.DumpTo(w)
			return err
		})
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		names = append(names, name)
		records = records[:0]
		return nil
	}

	for _, e := range s.Entries() {
		if m := monthOf(e); m != month {
			if err := flush(); err != nil {
				return names, err
			}
			month = m
		}
		records = append(records, recordOf(e))
	}
	if err := flush(); err != nil {
		return names, err
	}
	return names, nil
}

// Read loads every month file in dir whose name sorts at or after from, so
// from may be a year ("2021"), a month ("202103") or empty for everything.
// The result goes through the same integrity checks as a stored series.
func Read(dir, from string) (*series.Series, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, fileExt) || name < from {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	b := series.NewBuilder()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var records monthFile
		if err := easyjson.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		for _, r := range records {
			if err := b.Add(r.Interval, r.Price, r.TradeTime); err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
		}
	}
	return b.Series(), nil
}

// DailyClose is the last recorded price of a UTC calendar day.
type DailyClose struct {
	Date  civil.Date
	Entry series.Entry
}

// DailyCloses returns one DailyClose per UTC day with at least one entry, in
// ascending order.
func DailyCloses(s *series.Series) []DailyClose {
	var out []DailyClose
	s.Each(func(e series.Entry) bool {
		d := civil.DateOf(e.Interval.Start())
		if n := len(out); n > 0 && out[n-1].Date == d {
			out[n-1].Entry = e
			return true
		}
		out = append(out, DailyClose{Date: d, Entry: e})
		return true
	})
	return out
}
