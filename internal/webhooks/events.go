package webhooks

import (
	"encoding/json"
	"time"
)

// Event is the envelope of every Square webhook notification.
type Event struct {
	MerchantID string    `json:"merchant_id"`
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	CreatedAt  time.Time `json:"created_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment      *Payment      `json:"payment,omitempty"`
	Order        *Order        `json:"order,omitempty"`
	OrderUpdated *Order        `json:"order_updated,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Payment struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	AmountMoney Money     `json:"amount_money"`
	OrderID     string    `json:"order_id"`
	ReferenceID string    `json:"reference_id"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Order covers both the full order object and the order_updated summary,
// which carries the id as order_id.
type Order struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	State       string `json:"state"`
	ReferenceID string `json:"reference_id"`
}

func (o *Order) Key() string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return o.ID
}

type Subscription struct {
	ID              string `json:"id"`
	CustomerID      string `json:"customer_id"`
	Status          string `json:"status"`
	PlanVariationID string `json:"plan_variation_id"`
	PlanID          string `json:"plan_id"`
}

func (s *Subscription) Plan() string {
	if s.PlanVariationID != "" {
		return s.PlanVariationID
	}
	return s.PlanID
}

func ParseEvent(body []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(body, &ev)
	return ev, err
}
