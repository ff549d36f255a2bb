package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"
)

// WriteCSV renders trail records as CSV for download. Override columns carry
// the verbatim JSON values.
func WriteCSV(rows []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"occurred_at", "target", "action", "changed_by", "reason", "before_override", "after_override"}); err != nil {
		return nil, err
	}
	for _, rec := range rows {
		before, err := json.Marshal(rec.Before)
		if err != nil {
			return nil, err
		}
		after, err := json.Marshal(rec.After)
		if err != nil {
			return nil, err
		}
		record := []string{
			rec.OccurredAt.UTC().Format(time.RFC3339),
			rec.Target,
			rec.Action,
			strconv.FormatInt(rec.ChangedBy, 10),
			rec.Reason,
			string(before),
			string(after),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
