package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clawdash/gateway-go/pkg/log"
)

var baseTime = time.Date(2026, 3, 4, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.glog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ok := true
	failed := false
	code := 1006
	seq := int64(7)
	return []log.Event{
		{
			Timestamp: baseTime, ConnectionID: "conn-aaaa-1111", Direction: log.DirectionLocal,
			Category:    log.CategoryState,
			StateChange: &log.StateChangeEvent{OldState: "connecting", NewState: "authenticating", Reason: "socket open"},
		},
		{
			Timestamp: baseTime.Add(time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionOut,
			Category: log.CategoryFrame, URL: "ws://gw.local:18789",
			Frame: &log.FrameEvent{Type: "req", ID: "r1", Method: "connect", Size: 20, Data: []byte(`{"type":"req"}`)},
		},
		{
			Timestamp: baseTime.Add(2 * time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionIn,
			Category: log.CategoryFrame,
			Frame:    &log.FrameEvent{Type: "res", ID: "r1", OK: &ok, Size: 30},
		},
		{
			Timestamp: baseTime.Add(3 * time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionOut,
			Category: log.CategoryFrame,
			Frame:    &log.FrameEvent{Type: "req", ID: "r2", Method: "sessions.patch", Size: 40},
		},
		{
			Timestamp: baseTime.Add(4 * time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionIn,
			Category: log.CategoryFrame,
			Frame:    &log.FrameEvent{Type: "res", ID: "r2", OK: &failed, ErrorCode: "INVALID_REQUEST", Size: 50},
		},
		{
			Timestamp: baseTime.Add(5 * time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionIn,
			Category: log.CategoryFrame,
			Frame:    &log.FrameEvent{Type: "event", Event: "chat", Seq: &seq, Size: 60},
		},
		{
			Timestamp: baseTime.Add(6 * time.Millisecond), ConnectionID: "conn-aaaa-1111", Direction: log.DirectionLocal,
			Category: log.CategoryGap,
			Gap:      &log.GapEvent{Expected: 5, Received: 7},
		},
		{
			Timestamp: baseTime.Add(time.Second), ConnectionID: "conn-bbbb-2222", Direction: log.DirectionLocal,
			Category: log.CategoryError,
			Error:    &log.ErrorEventData{Kind: log.ErrorKindTransport, Message: "abnormal closure", Code: &code, Context: "close"},
		},
	}
}

func TestParseFlags(t *testing.T) {
	d, err := ParseDirectionFlag("out")
	if err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}

	c, err := ParseCategoryFlag("Gap")
	if err != nil || c != log.CategoryGap {
		t.Errorf("ParseCategoryFlag(Gap) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("message"); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	f, err := FilterOptions{
		ConnID:    "conn-aaaa-1111",
		Direction: "in",
		Category:  "frame",
		TimeStart: "2026-03-04T10:00:00Z",
	}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.ConnectionID != "conn-aaaa-1111" || *f.Direction != log.DirectionIn || *f.Category != log.CategoryFrame {
		t.Errorf("unexpected filter: %+v", f)
	}
	if f.TimeStart == nil || f.TimeEnd != nil {
		t.Errorf("unexpected time bounds: %+v", f)
	}

	if _, err := (FilterOptions{TimeEnd: "yesterday"}).Build(); err == nil {
		t.Error("expected error for bad time-end")
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-03-04T10:15:32.123456Z [conn:conn-aaa] LOCAL STATE state",
		"connecting -> authenticating",
		"OUT   FRAME req connect",
		`Data: {"type":"req"}`,
		"OK: false (INVALID_REQUEST)",
		"event chat",
		"Seq: 7",
		"Expected: 5  Received: 7  Missing: 2",
		"Kind: TRANSPORT",
		"Code: 1006",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	dir := log.DirectionOut
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Direction: &dir}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "FRAME req") != 2 {
		t.Errorf("expected 2 outgoing requests:\n%s", out)
	}
	if strings.Contains(out, " IN ") || strings.Contains(out, "STATE") {
		t.Errorf("filter leaked events:\n%s", out)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView(filepath.Join(t.TempDir(), "nope.glog"), log.Filter{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", log.Filter{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	var lines []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != len(sampleEvents()) {
		t.Fatalf("got %d lines, want %d", len(lines), len(sampleEvents()))
	}

	req := lines[1]
	if req["direction"] != "OUT" || req["category"] != "FRAME" || req["url"] != "ws://gw.local:18789" {
		t.Errorf("unexpected request line: %v", req)
	}
	frame := req["frame"].(map[string]any)
	if frame["method"] != "connect" || frame["data"] != `{"type":"req"}` {
		t.Errorf("unexpected frame: %v", frame)
	}

	state := lines[0]["stateChange"].(map[string]any)
	if state["newState"] != "authenticating" {
		t.Errorf("unexpected state change: %v", state)
	}

	errLine := lines[len(lines)-1]["error"].(map[string]any)
	if errLine["kind"] != "TRANSPORT" || errLine["code"] != float64(1006) {
		t.Errorf("unexpected error: %v", errLine)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	cat := log.CategoryFrame
	var buf bytes.Buffer
	if err := RunExport(path, "csv", log.Filter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want header + 5 frames:\n%s", len(rows), buf.String())
	}
	if rows[0] != "timestamp,connection_id,direction,category,type,name,id,seq,size" {
		t.Errorf("unexpected header: %s", rows[0])
	}
	if !strings.Contains(rows[5], ",event,chat,,7,60") {
		t.Errorf("unexpected event row: %s", rows[5])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", log.Filter{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "filtered.glog")

	n, err := RunFilter(path, output, log.Filter{ConnectionID: "conn-bbbb-2222"})
	if err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if n != 1 {
		t.Errorf("filtered %d events, want 1", n)
	}

	reader, err := log.NewReader(output)
	if err != nil {
		t.Fatalf("open filtered: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Error == nil || event.Error.Message != "abnormal closure" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := CollectStats(path, log.Filter{})
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if stats.TotalEvents != 8 {
		t.Errorf("TotalEvents = %d, want 8", stats.TotalEvents)
	}
	if stats.Methods["connect"] != 1 || stats.Methods["sessions.patch"] != 1 {
		t.Errorf("Methods = %v", stats.Methods)
	}
	if stats.RemoteErrors["INVALID_REQUEST"] != 1 {
		t.Errorf("RemoteErrors = %v", stats.RemoteErrors)
	}
	if stats.Gaps != 1 || stats.Errors != 1 {
		t.Errorf("Gaps = %d, Errors = %d", stats.Gaps, stats.Errors)
	}
	if len(stats.Connections) != 2 {
		t.Errorf("Connections = %d, want 2", len(stats.Connections))
	}
	conn := stats.Connections["conn-aaaa-1111"]
	if conn.Requests != 2 || conn.Responses != 2 || conn.Pushed != 1 {
		t.Errorf("conn stats = %+v", conn)
	}

	var buf bytes.Buffer
	if err := RunStats(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total Events: 8", "FRAME:", "LOCAL:", "sessions.patch", "INVALID_REQUEST", "Connections: 2", "Sequence Gaps: 1", "Errors: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q\n%s", want, out)
		}
	}
}
