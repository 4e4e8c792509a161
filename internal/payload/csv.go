package payload

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
)

// FromCSV converts CSV input into one JSON object per row, keyed by the
// header row. Values stay strings; the transformation engine's declared
// data types drive conversion later, so guessing types here would only
// fight the mapping.
func FromCSV(r io.Reader) ([]map[string]interface{}, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header")
	}

	var rows []map[string]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading csv row %d", len(rows)+2)
		}

		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
