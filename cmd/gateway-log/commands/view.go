// Package commands implements the gateway-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/clawdash/gateway-go/pkg/log"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION CATEGORY label
	ts := event.Timestamp.UTC().Format(timeLayout)
	connID := shortenConnID(event.ConnectionID)

	fmt.Fprintf(w, "%s [conn:%s] %-5s %-5s %s\n",
		ts, connID, event.Direction.String(), event.Category.String(), eventLabel(event))

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Gap != nil:
		fmt.Fprintf(w, "  Expected: %d  Received: %d  Missing: %d\n",
			event.Gap.Expected, event.Gap.Received, event.Gap.Received-event.Gap.Expected)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventLabel names the event for headers and exports.
func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		if name := event.Frame.Name(); name != "" {
			return event.Frame.Type + " " + name
		}
		if event.Frame.Type == "" {
			return "malformed"
		}
		return event.Frame.Type
	case event.StateChange != nil:
		return "state"
	case event.Gap != nil:
		return "gap"
	case event.Error != nil:
		return "error"
	default:
		return "unknown"
	}
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	if frame.ID != "" {
		fmt.Fprintf(w, "  ID: %s\n", frame.ID)
	}
	if frame.Seq != nil {
		fmt.Fprintf(w, "  Seq: %d\n", *frame.Seq)
	}
	if frame.OK != nil {
		fmt.Fprintf(w, "  OK: %s", strconv.FormatBool(*frame.OK))
		if frame.ErrorCode != "" {
			fmt.Fprintf(w, " (%s)", frame.ErrorCode)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", frame.Data)
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Kind: %s\n", err.Kind.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// RunView prints the events of path matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}
