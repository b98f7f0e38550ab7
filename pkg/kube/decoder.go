// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	"k8s.io/klog/v2"
)

// Decoder reads newline delimited watch events from a stream.
// Records split across reads are reassembled before parsing.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 32*1024)}
}

// Decode returns the next event. It returns io.EOF at the end of the stream; an
// unterminated record at the end is discarded. A record that can't be parsed is a
// *DecodeError and the stream must not be read further.
func (d *Decoder) Decode() (model.WatchEvent, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(bytes.TrimSpace(line)) > 0 {
					klog.V(3).Infof("Discarding %d bytes of incomplete watch event at end of stream.", len(line))
				}
				return model.WatchEvent{}, io.EOF
			}
			return model.WatchEvent{}, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var event model.WatchEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return model.WatchEvent{}, &DecodeError{Record: line, Err: err}
		}
		return event, nil
	}
}
