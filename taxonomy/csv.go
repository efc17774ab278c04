package taxonomy

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"

	"github.com/teranos/capgen/errors"
)

// Header is the column schema of the exported table
var Header = []string{
	"Industry", "Industry Description",
	"L0 Capability", "L0 Capability Description", "L0 Capability Level",
	"L1 Capability", "L1 Capability Description", "L1 Capability Level",
	"L2 Capability", "L2 Capability Description", "L2 Capability Level",
}

// OutlineHeader is the column schema of the two-level outline
var OutlineHeader = []string{
	"Industry", "Industry Description",
	"L0 Capability", "L0 Capability Description", "L0 Level",
	"L1 Capability", "L1 Capability Description", "L1 Level",
}

// WriteCSV writes the header and rows
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return errors.Wrap(err, "failed to write headers")
	}
	for _, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "failed to flush CSV")
}

// EncodeCSV renders rows as CSV bytes
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Flusher is implemented by writers that can push buffered bytes to the
// client, such as http.ResponseWriter.
type Flusher interface {
	Flush()
}

// StreamOutline writes the outline header followed by one row per L0×L1
// pair, flushing after each row when w supports it. It stops early if ctx
// is cancelled.
func StreamOutline(ctx context.Context, w io.Writer, ind *Industry) error {
	writer := csv.NewWriter(w)
	flusher, _ := w.(Flusher)

	flush := func() error {
		writer.Flush()
		if err := writer.Error(); err != nil {
			return errors.Wrap(err, "failed to flush CSV")
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := writer.Write(OutlineHeader); err != nil {
		return errors.Wrap(err, "failed to write headers")
	}
	if err := flush(); err != nil {
		return err
	}

	for _, row := range OutlineRows(ind) {
		if err := ctx.Err(); err != nil {
			return errors.MarkCancelled(errors.Wrap(err, "outline stream cancelled"))
		}
		if err := writer.Write(row.Record()); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
		if err := flush(); err != nil {
			return err
		}
	}
	return nil
}
