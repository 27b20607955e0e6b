package log

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleEvents(base time.Time) []Event {
	seq := int64(7)
	ok := false
	code := 4008
	return []Event{
		{
			Timestamp:    base,
			ConnectionID: "conn-a",
			Direction:    DirectionOut,
			Category:     CategoryFrame,
			Frame:        &FrameEvent{Type: "req", ID: "r1", Method: "health", Size: 42},
		},
		{
			Timestamp:    base.Add(time.Millisecond),
			ConnectionID: "conn-a",
			Direction:    DirectionIn,
			Category:     CategoryFrame,
			Frame:        &FrameEvent{Type: "res", ID: "r1", OK: &ok, ErrorCode: "UNAVAILABLE", Size: 80},
		},
		{
			Timestamp:    base.Add(2 * time.Millisecond),
			ConnectionID: "conn-a",
			Direction:    DirectionIn,
			Category:     CategoryFrame,
			Frame:        &FrameEvent{Type: "event", Event: "tick", Seq: &seq, Size: 30},
		},
		{
			Timestamp:    base.Add(3 * time.Millisecond),
			ConnectionID: "conn-b",
			Direction:    DirectionLocal,
			Category:     CategoryState,
			StateChange:  &StateChangeEvent{OldState: "connecting", NewState: "authenticating"},
		},
		{
			Timestamp:    base.Add(4 * time.Millisecond),
			ConnectionID: "conn-b",
			Direction:    DirectionLocal,
			Category:     CategoryError,
			Error:        &ErrorEventData{Kind: ErrorKindHandshake, Message: "unauthorized", Code: &code},
		},
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionIn.String() != "IN" || DirectionOut.String() != "OUT" || DirectionLocal.String() != "LOCAL" {
		t.Error("unexpected direction names")
	}
	if Direction(9).String() != "UNKNOWN" {
		t.Error("unknown direction should print UNKNOWN")
	}
	if CategoryGap.String() != "GAP" || Category(9).String() != "UNKNOWN" {
		t.Error("unexpected category names")
	}
	if ErrorKindTimeout.String() != "TIMEOUT" {
		t.Error("unexpected error kind name")
	}

	if d, ok := ParseDirection("OUT"); !ok || d != DirectionOut {
		t.Errorf("ParseDirection(OUT) = %v, %v", d, ok)
	}
	if _, ok := ParseDirection("SIDEWAYS"); ok {
		t.Error("ParseDirection accepted an unknown name")
	}
	if c, ok := ParseCategory("STATE"); !ok || c != CategoryState {
		t.Errorf("ParseCategory(STATE) = %v, %v", c, ok)
	}
}

func TestEncodeDecodeEvent(t *testing.T) {
	want := sampleEvents(time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC))[2]

	data, err := EncodeEvent(want)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, want.Timestamp)
	}
	if got.Frame == nil || got.Frame.Event != "tick" || got.Frame.Seq == nil || *got.Frame.Seq != 7 {
		t.Errorf("frame not preserved: %+v", got.Frame)
	}
}

func TestCaptureFrame(t *testing.T) {
	t.Run("Request", func(t *testing.T) {
		fe := CaptureFrame([]byte(`{"type":"req","id":"a1","method":"chat.send","params":{}}`), -1)
		if fe.Type != "req" || fe.ID != "a1" || fe.Method != "chat.send" {
			t.Errorf("unexpected frame: %+v", fe)
		}
		if fe.Truncated {
			t.Error("full capture should not be truncated")
		}
	})

	t.Run("ErrorResponse", func(t *testing.T) {
		fe := CaptureFrame([]byte(`{"type":"res","id":"a1","ok":false,"error":{"code":"NOT_FOUND","message":"x"}}`), -1)
		if fe.OK == nil || *fe.OK {
			t.Error("OK should be recorded as false")
		}
		if fe.ErrorCode != "NOT_FOUND" {
			t.Errorf("ErrorCode = %q", fe.ErrorCode)
		}
	})

	t.Run("EventWithSeq", func(t *testing.T) {
		fe := CaptureFrame([]byte(`{"type":"event","event":"agent","seq":12}`), -1)
		if fe.Name() != "agent" || fe.Seq == nil || *fe.Seq != 12 {
			t.Errorf("unexpected frame: %+v", fe)
		}
	})

	t.Run("Truncation", func(t *testing.T) {
		raw := []byte(`{"type":"event","event":"tick"}`)
		fe := CaptureFrame(raw, 8)
		if !fe.Truncated || len(fe.Data) != 8 || fe.Size != len(raw) {
			t.Errorf("unexpected truncation: size=%d len=%d truncated=%v", fe.Size, len(fe.Data), fe.Truncated)
		}
		if fe.Event != "tick" {
			t.Error("metadata must come from the full frame")
		}

		fe = CaptureFrame(raw, 0)
		if fe.Data != nil || !fe.Truncated {
			t.Error("maxData 0 should keep no data")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		fe := CaptureFrame([]byte(`not json`), -1)
		if fe.Type != "" || fe.Size != 8 {
			t.Errorf("unexpected frame: %+v", fe)
		}
	})
}

func TestFileLoggerAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.glog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q", logger.Path())
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, e := range sampleEvents(base) {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	logger.Log(Event{}) // ignored after close

	t.Run("All", func(t *testing.T) {
		r, err := NewReader(path)
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		defer r.Close()

		n := 0
		for {
			_, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			n++
		}
		if n != 5 {
			t.Errorf("read %d events, want 5", n)
		}
	})

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"ConnectionID", Filter{ConnectionID: "conn-b"}, 2},
		{"Direction", Filter{Direction: ptr(DirectionIn)}, 2},
		{"Category", Filter{Category: ptr(CategoryFrame)}, 3},
		{"Name", Filter{Name: "health"}, 1},
		{"TimeWindow", Filter{TimeStart: ptr(base.Add(time.Millisecond)), TimeEnd: ptr(base.Add(3 * time.Millisecond))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader: %v", err)
			}
			defer r.Close()

			n := 0
			for {
				if _, err := r.Next(); err != nil {
					break
				}
				n++
			}
			if n != tt.want {
				t.Errorf("matched %d events, want %d", n, tt.want)
			}
		})
	}
}

func TestReaderTruncatedTail(t *testing.T) {
	data, err := EncodeEvent(sampleEvents(time.Now())[0])
	if err != nil {
		t.Fatal(err)
	}
	stream := append(append([]byte(nil), data...), data[:len(data)/2]...)

	r := NewStreamReader(bytes.NewReader(stream), Filter{})
	if _, err := r.Next(); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("truncated tail: got %v, want io.EOF", err)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.glog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(Event{Timestamp: time.Now(), ConnectionID: "c", Category: CategoryFrame, Frame: &FrameEvent{Size: j}})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("log file empty or missing: %v", err)
	}

	r, _ := NewReader(path)
	defer r.Close()
	n := 0
	for {
		if _, err := r.Next(); err != nil {
			break
		}
		n++
	}
	if n != 200 {
		t.Errorf("read %d events, want 200", n)
	}
}

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLogger(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)
	m.Log(Event{ConnectionID: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out failed: a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestEnabled(t *testing.T) {
	if Enabled(nil) || Enabled(NoopLogger{}) {
		t.Error("nil and NoopLogger should be disabled")
	}
	if !Enabled(&captureLogger{}) {
		t.Error("real logger should be enabled")
	}
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	adapter := NewSlogAdapter(slogger)

	for _, e := range sampleEvents(time.Now()) {
		adapter.Log(e)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["msg"] != "protocol" || entry["name"] != "health" || entry["direction"] != "OUT" {
		t.Errorf("unexpected frame entry: %v", entry)
	}

	if err := json.Unmarshal([]byte(lines[3]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["new_state"] != "authenticating" {
		t.Errorf("unexpected state entry: %v", entry)
	}

	entry = map[string]any{}
	if err := json.Unmarshal([]byte(lines[4]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["error_kind"] != "HANDSHAKE" || entry["error_code"] != float64(4008) {
		t.Errorf("unexpected error entry: %v", entry)
	}
}

func ptr[T any](v T) *T { return &v }
