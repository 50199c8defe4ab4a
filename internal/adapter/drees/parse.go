package drees

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// Delimiter separates fields in the DREES export.
const Delimiter = ';'

// requiredColumns must all appear in the header.
var requiredColumns = []string{"date", "age", "vac_statut", "hc_pcr", "sc_pcr", "dc_pcr", "effectif"}

// csvRow mirrors the consumed columns. Pointer fields stay nil when the cell is empty.
type csvRow struct {
	Date       domain.Day `csv:"date"`
	Age        string     `csv:"age"`
	VacStatus  string     `csv:"vac_statut"`
	Hospital   *float64   `csv:"hc_pcr"`
	ICU        *float64   `csv:"sc_pcr"`
	Deaths     *float64   `csv:"dc_pcr"`
	Population *float64   `csv:"effectif"`
}

// ParseResult holds the decoded records and the number of rows dropped.
type ParseResult struct {
	Records []domain.RawRecord
	Skipped int
}

// Parse decodes a ";"-delimited DREES export, one record per line. Malformed
// rows (wrong field count, broken quoting, invalid UTF-8, unparsable values,
// negative counts, missing keys) are skipped and counted. A header missing a required column
// is an error.
func Parse(r io.Reader) (ParseResult, error) {
	lr := newLenientReader(r)

	header, err := lr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{}, nil
		}
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}
	header = normalizeHeader(header)
	if missing := missingColumns(header); len(missing) > 0 {
		return ParseResult{}, fmt.Errorf("header missing columns: %s", strings.Join(missing, ", "))
	}

	dec, err := csvutil.NewDecoder(lr, header...)
	if err != nil {
		return ParseResult{}, fmt.Errorf("create csv decoder: %w", err)
	}

	var res ParseResult
	for {
		var row csvRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if lr.err != nil {
			return ParseResult{}, fmt.Errorf("read csv: %w", lr.err)
		}
		if err != nil {
			res.Skipped++
			continue
		}
		rec, ok := row.toRecord()
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	res.Skipped += lr.skipped
	return res, nil
}

func (row csvRow) toRecord() (domain.RawRecord, bool) {
	age := strings.TrimSpace(row.Age)
	status := strings.TrimSpace(row.VacStatus)
	if row.Date.IsZero() || age == "" || status == "" {
		return domain.RawRecord{}, false
	}

	hospital, ok1 := count(row.Hospital)
	icu, ok2 := count(row.ICU)
	deaths, ok3 := count(row.Deaths)
	if !ok1 || !ok2 || !ok3 {
		return domain.RawRecord{}, false
	}

	population := math.NaN()
	if row.Population != nil {
		if *row.Population < 0 || math.IsNaN(*row.Population) || math.IsInf(*row.Population, 0) {
			return domain.RawRecord{}, false
		}
		population = *row.Population
	}

	return domain.RawRecord{
		Date:       row.Date,
		Age:        age,
		VacStatus:  status,
		Hospital:   hospital,
		ICU:        icu,
		Deaths:     deaths,
		Population: population,
	}, true
}

// count treats an empty cell as zero and rejects negative or non-finite values.
func count(v *float64) (float64, bool) {
	if v == nil {
		return 0, true
	}
	if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// maxLineBytes bounds a single physical line of the export.
const maxLineBytes = 1 << 20

// lenientReader decodes the export one physical line at a time, so a broken
// quote can only cost its own row. Lines the csv package rejects, lines whose
// field count differs from the header and lines that are not valid UTF-8 are
// skipped. Any other read error is kept in err and ends the stream.
type lenientReader struct {
	lines   *bufio.Scanner
	fields  int
	skipped int
	err     error
}

func newLenientReader(r io.Reader) *lenientReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lenientReader{lines: sc}
}

func (l *lenientReader) Read() ([]string, error) {
	for l.lines.Scan() {
		line := strings.TrimSuffix(l.lines.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			l.skipped++
			continue
		}
		if l.fields == 0 {
			l.fields = len(rec)
		} else if len(rec) != l.fields {
			l.skipped++
			continue
		}
		if !validUTF8(rec) {
			l.skipped++
			continue
		}
		return rec, nil
	}
	if err := l.lines.Err(); err != nil {
		l.err = err
		return nil, err
	}
	return nil, io.EOF
}

// parseLine splits one line into fields, honoring quotes.
func parseLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = Delimiter
	return cr.Read()
}

func validUTF8(rec []string) bool {
	for _, f := range rec {
		if !utf8.ValidString(f) {
			return false
		}
	}
	return true
}
