package amqp

import (
	"encoding/json"
	"time"
)

// MovementsChangedMessage announces that movements were written. It carries
// only the affected periods; consumers reload the data they need.
type MovementsChangedMessage struct {
	Reason    string    `json:"reason"`
	Periods   []string  `json:"periods"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMovementsChangedMessage creates a message for count movements touching
// the given YYYY-MM periods.
func NewMovementsChangedMessage(reason string, periods []string, count int) *MovementsChangedMessage {
	return &MovementsChangedMessage{
		Reason:    reason,
		Periods:   periods,
		Count:     count,
		Timestamp: time.Now(),
	}
}

// Years returns the distinct years named by the message periods, in order of
// first appearance.
func (m *MovementsChangedMessage) Years() []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range m.Periods {
		t, err := time.Parse("2006-01", p)
		if err != nil {
			continue
		}
		if !seen[t.Year()] {
			seen[t.Year()] = true
			out = append(out, t.Year())
		}
	}
	return out
}

func (m *MovementsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MovementsChangedMessageFromJSON(data []byte) (*MovementsChangedMessage, error) {
	var msg MovementsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
