package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidMessage = errors.New("invalid queue message")

// SnapshotMsg asks a worker to build and store the graph of a dataset at one
// frequency threshold.
type SnapshotMsg struct {
	DatasetID    string `json:"datasetId"`
	SnapshotID   string `json:"snapshotId"`
	MinFrequency int    `json:"minFrequency"`
}

func (m SnapshotMsg) validate() error {
	switch {
	case m.DatasetID == "":
		return fmt.Errorf("%w: datasetId is empty", ErrInvalidMessage)
	case m.SnapshotID == "":
		return fmt.Errorf("%w: snapshotId is empty", ErrInvalidMessage)
	case m.MinFrequency < 1 || m.MinFrequency > math.MaxInt32:
		return fmt.Errorf("%w: minFrequency must be in [1, %d], got %d", ErrInvalidMessage, math.MaxInt32, m.MinFrequency)
	}
	return nil
}

func decodeSnapshotMsg(body []byte) (SnapshotMsg, error) {
	var msg SnapshotMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, msg.validate()
}

// EnqueueSnapshot publishes msg to the snapshot queue.
func EnqueueSnapshot(ch Channel, msg SnapshotMsg) error {
	if err := msg.validate(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, SnapshotQueue, data)
}
