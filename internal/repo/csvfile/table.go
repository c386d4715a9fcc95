// Package csvfile reads the host registry and the subscriber list from
// delimited text files with a header row.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	serrors "github.com/hamed0406/sshwatch/internal/errors"
)

// DefaultDelimiter is the field separator of hosts.csv and admins.csv.
const DefaultDelimiter = ';'

// record is one data row keyed by header name.
type record struct {
	line   int
	fields map[string]string
}

func (r record) get(col string) string {
	return strings.TrimSpace(r.fields[col])
}

func (r record) port(col string) (int, error) {
	raw := r.get(col)
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("line %d: %s %q is not a valid port", r.line, col, raw)
	}
	return p, nil
}

// readTable reads path and returns its data rows. Every name in required
// must appear in the header and every row must have a value for each
// header column.
func readTable(path string, delim rune, required ...string) ([]record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, serrors.WrapWithCode(err, serrors.ErrConfig,
			"Cannot open "+path, "Check the file exists and is readable")
	}
	defer f.Close()

	rows, header, err := parse(f, delim, required...)
	if err != nil {
		hint := fmt.Sprintf("Every row needs one %q-separated value per header column", string(delim))
		if errors.Is(err, errHeader) {
			hint = fmt.Sprintf("Expected a %q-delimited header with columns %s", string(delim), strings.Join(required, ", "))
		}
		return nil, nil, serrors.WrapWithCode(err, serrors.ErrConfig, "Malformed "+path, hint)
	}
	return rows, header, nil
}

var errHeader = errors.New("bad header")

func parse(r io.Reader, delim rune, required ...string) ([]record, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	// comments are free text and may carry quotes
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: missing header row", errHeader)
	}
	if err != nil {
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	// a UTF-8 BOM sticks to the first column name
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing column(s) %s", errHeader, strings.Join(missing, ", "))
	}

	var out []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(fields) != len(header) {
			return nil, nil, fmt.Errorf("line %d: got %d field(s), header has %d", line, len(fields), len(header))
		}
		rec := record{line: line, fields: make(map[string]string, len(header))}
		for i, h := range header {
			rec.fields[h] = fields[i]
		}
		out = append(out, rec)
	}
	return out, header, nil
}

func lineErr(r record, col string) error {
	return fmt.Errorf("line %d: %s is empty", r.line, col)
}
