package deadletter

import (
	"encoding/json"
	"time"

	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// Record is one message the consumer gave up on.
type Record struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Queue         string    `gorm:"size:255;not null;index" json:"queue"`
	Kind          string    `gorm:"size:255" json:"kind"`
	Reason        string    `gorm:"size:32;not null;index" json:"reason"`
	MessageID     string    `gorm:"size:255;index" json:"messageId"`
	DeliveryCount int       `gorm:"not null" json:"deliveryCount"`
	Error         string    `gorm:"type:text" json:"error"`
	Body          []byte    `gorm:"type:bytea" json:"body"`
	Headers       string    `gorm:"type:jsonb" json:"headers"`
	CreatedAt     time.Time `gorm:"not null;index" json:"createdAt"`
}

func (Record) TableName() string {
	return "dead_letters"
}

// NewRecord captures a dropped message.
func NewRecord(dropped rabbit.DroppedMessage) Record {
	r := Record{
		Queue:     dropped.Queue,
		Kind:      dropped.Kind,
		Reason:    string(dropped.Reason),
		CreatedAt: time.Now().UTC(),
		Headers:   "{}",
	}
	if dropped.Err != nil {
		r.Error = dropped.Err.Error()
	}
	if msg := dropped.Msg; msg != nil {
		r.MessageID = msg.MessageID()
		r.DeliveryCount = msg.DeliveryCount()
		r.Body = append([]byte(nil), msg.Body()...)
		r.Headers = encodeHeaders(msg.Header())
	}
	return r
}

// encodeHeaders renders AMQP headers as a JSON object. Values json cannot
// encode are replaced by their string form.
func encodeHeaders(h map[string]interface{}) string {
	if len(h) == 0 {
		return "{}"
	}
	out, err := json.Marshal(h)
	if err == nil {
		return string(out)
	}
	flat := make(map[string]string, len(h))
	for k, v := range h {
		b, err := json.Marshal(v)
		if err != nil {
			flat[k] = "<unencodable>"
			continue
		}
		flat[k] = string(b)
	}
	out, _ = json.Marshal(flat)
	return string(out)
}
