// ABOUTME: Tests for SSL and SST message parsing
// ABOUTME: Uses messages shaped like real ODAS output
package tracking

import (
	"errors"
	"strings"
	"testing"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

const sslSample = `{
    "timeStamp": 41888,
    "src": [
        { "x": 0.000, "y": 0.824, "z": 0.566, "E": 0.321 },
        { "x": -0.161, "y": 0.959, "z": 0.232, "E": 0.121 },
        { "x": -0.942, "y": -0.263, "z": 0.211, "E": 0.130 },
        { "x": 0.266, "y": 0.507, "z": 0.820, "E": 0.081 }
    ]
}`

const sstSample = `{
    "timeStamp": 41887,
    "src": [
        { "id": 100, "tag": "dynamic", "x": -0.014, "y": 0.901, "z": 0.434, "activity": 0.954 },
        { "id": 112, "tag": "dynamic", "x": -0.966, "y": -0.161, "z": 0.204, "activity": 0.000 },
        { "id": 0, "tag": "", "x": 0.000, "y": 0.000, "z": 0.000, "activity": 0.000 },
        { "id": 0, "tag": "", "x": 0.000, "y": 0.000, "z": 0.000, "activity": 0.000 }
    ]
}`

func TestParseSSL(t *testing.T) {
	msg, err := ParseSSL([]byte(sslSample), odas.DefaultParams())
	if err != nil {
		t.Fatalf("ParseSSL: %v", err)
	}
	if msg.Timestamp != 41888 {
		t.Errorf("Timestamp = %d, want 41888", msg.Timestamp)
	}
	if len(msg.Sources) != 4 {
		t.Fatalf("got %d sources, want 4", len(msg.Sources))
	}
	if msg.Sources[0].Y != 0.824 || msg.Sources[0].E != 0.321 {
		t.Errorf("source 0 = %+v", msg.Sources[0])
	}
}

func TestParseSSLDropsExtraSources(t *testing.T) {
	p := odas.DefaultParams()
	p.MaxSources = 2
	msg, err := ParseSSL([]byte(sslSample), p)
	if err != nil {
		t.Fatalf("ParseSSL: %v", err)
	}
	if len(msg.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(msg.Sources))
	}
}

func TestParseSST(t *testing.T) {
	msg, err := ParseSST([]byte(sstSample), odas.DefaultParams())
	if err != nil {
		t.Fatalf("ParseSST: %v", err)
	}
	if msg.Timestamp != 41887 {
		t.Errorf("Timestamp = %d", msg.Timestamp)
	}
	if msg.Sources[0].ID != 100 || msg.Sources[0].Tag != "dynamic" || msg.Sources[0].Activity != 0.954 {
		t.Errorf("source 0 = %+v", msg.Sources[0])
	}
	if !msg.Sources[1].Active() || msg.Sources[2].Active() {
		t.Errorf("Active() wrong: %v %v", msg.Sources[1].Active(), msg.Sources[2].Active())
	}
}

func TestParseSSTTruncatesTag(t *testing.T) {
	long := strings.Repeat("t", 30)
	data := `{"timeStamp": 1, "src": [{"id": 1, "tag": "` + long + `"}]}`
	msg, err := ParseSST([]byte(data), odas.DefaultParams())
	if err != nil {
		t.Fatalf("ParseSST: %v", err)
	}
	if got := msg.Sources[0].Tag; got != long[:20] {
		t.Errorf("tag = %q, want 20 bytes", got)
	}
}

func TestParseRejectsBadJSON(t *testing.T) {
	if _, err := ParseSSL([]byte(`{"timeStamp": "x"}`), odas.DefaultParams()); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("ParseSSL string timestamp: err = %v, want ErrInvalidMessage", err)
	}
	if _, err := ParseSST([]byte(`{`), odas.DefaultParams()); err == nil {
		t.Error("ParseSST accepted truncated JSON")
	}
}
