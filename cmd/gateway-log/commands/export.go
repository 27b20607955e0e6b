package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/clawdash/gateway-go/pkg/log"
)

// jsonEvent is the JSONL export shape. Frame data is emitted as text since
// gateway frames are JSON.
type jsonEvent struct {
	Timestamp    string                `json:"timestamp"`
	ConnectionID string                `json:"connectionId,omitempty"`
	Direction    string                `json:"direction"`
	Category     string                `json:"category"`
	URL          string                `json:"url,omitempty"`
	Frame        *jsonFrame            `json:"frame,omitempty"`
	StateChange  *log.StateChangeEvent `json:"stateChange,omitempty"`
	Gap          *log.GapEvent         `json:"gap,omitempty"`
	Error        *jsonError            `json:"error,omitempty"`
}

type jsonFrame struct {
	Type      string `json:"type,omitempty"`
	ID        string `json:"id,omitempty"`
	Method    string `json:"method,omitempty"`
	Event     string `json:"event,omitempty"`
	Seq       *int64 `json:"seq,omitempty"`
	OK        *bool  `json:"ok,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Size      int    `json:"size"`
	Data      string `json:"data,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

type jsonError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    *int   `json:"code,omitempty"`
	Context string `json:"context,omitempty"`
}

func toJSONEvent(e log.Event) jsonEvent {
	out := jsonEvent{
		Timestamp:    e.Timestamp.UTC().Format(timeLayout),
		ConnectionID: e.ConnectionID,
		Direction:    e.Direction.String(),
		Category:     e.Category.String(),
		URL:          e.URL,
		StateChange:  e.StateChange,
		Gap:          e.Gap,
	}
	if f := e.Frame; f != nil {
		out.Frame = &jsonFrame{
			Type:      f.Type,
			ID:        f.ID,
			Method:    f.Method,
			Event:     f.Event,
			Seq:       f.Seq,
			OK:        f.OK,
			ErrorCode: f.ErrorCode,
			Size:      f.Size,
			Data:      string(f.Data),
			Truncated: f.Truncated,
		}
	}
	if err := e.Error; err != nil {
		out.Error = &jsonError{
			Kind:    err.Kind.String(),
			Message: err.Message,
			Code:    err.Code,
			Context: err.Context,
		}
	}
	return out
}

// RunExport writes the events of path matching filter to w as jsonl or csv.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toJSONEvent(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "connection_id", "direction", "category", "type", "name", "id", "seq", "size"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var typ, name, id, seq, size string
		switch {
		case event.Frame != nil:
			typ = event.Frame.Type
			name = event.Frame.Name()
			id = event.Frame.ID
			if event.Frame.Seq != nil {
				seq = strconv.FormatInt(*event.Frame.Seq, 10)
			}
			size = strconv.Itoa(event.Frame.Size)
		default:
			typ = eventLabel(event)
		}

		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.ConnectionID,
			event.Direction.String(),
			event.Category.String(),
			typ,
			name,
			id,
			seq,
			size,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
