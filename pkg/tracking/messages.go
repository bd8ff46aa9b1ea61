// ABOUTME: SSL and SST message types as written by the ODAS engine
// ABOUTME: Parses JSON objects and caps sources and tags to the stream parameters
package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

// ErrInvalidMessage wraps JSON errors for a single object. The stream itself
// is still usable after it.
var ErrInvalidMessage = errors.New("tracking: invalid message")

// SSLSource is one potential source: a unit direction vector and its energy.
type SSLSource struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	E float64 `json:"E"`
}

// SSL is one sound source localization message.
type SSL struct {
	Timestamp uint64      `json:"timeStamp"`
	Sources   []SSLSource `json:"src"`
}

// SSTSource is one tracked source. ID 0 with an empty tag is an idle slot.
type SSTSource struct {
	ID       uint64  `json:"id"`
	Tag      string  `json:"tag"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Activity float64 `json:"activity"`
}

// Active reports whether the slot currently tracks a source.
func (s SSTSource) Active() bool {
	return s.ID != 0 || s.Tag != ""
}

// SST is one sound source tracking message.
type SST struct {
	Timestamp uint64      `json:"timeStamp"`
	Sources   []SSTSource `json:"src"`
}

// ParseSSL decodes one SSL object, keeping at most p.MaxSources sources.
func ParseSSL(data []byte, p odas.Params) (SSL, error) {
	var msg SSL
	if err := json.Unmarshal(data, &msg); err != nil {
		return SSL{}, fmt.Errorf("%w: SSL: %v", ErrInvalidMessage, err)
	}
	if len(msg.Sources) > p.MaxSources {
		log.Printf("SSL array too big (%d sources), discarding entries beyond %d", len(msg.Sources), p.MaxSources)
		msg.Sources = msg.Sources[:p.MaxSources]
	}
	return msg, nil
}

// ParseSST decodes one SST object, keeping at most p.MaxSources sources and
// cutting tags to p.TagLen bytes.
func ParseSST(data []byte, p odas.Params) (SST, error) {
	var msg SST
	if err := json.Unmarshal(data, &msg); err != nil {
		return SST{}, fmt.Errorf("%w: SST: %v", ErrInvalidMessage, err)
	}
	if len(msg.Sources) > p.MaxSources {
		log.Printf("SST array too big (%d sources), discarding entries beyond %d", len(msg.Sources), p.MaxSources)
		msg.Sources = msg.Sources[:p.MaxSources]
	}
	for i := range msg.Sources {
		if len(msg.Sources[i].Tag) > p.TagLen {
			msg.Sources[i].Tag = msg.Sources[i].Tag[:p.TagLen]
		}
	}
	return msg, nil
}
