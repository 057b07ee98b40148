package usecase

// Published to RabbitMQ after a successful checkout; consumed by email-worker.
type OrderConfirmedMsg struct {
	OrderID    string `json:"orderId"`
	UserID     string `json:"userId"`
	UserEmail  string `json:"userEmail,omitempty"`
	TotalCents int64  `json:"totalCents"`
	ItemCount  int    `json:"itemCount"`
}

// Sent by the fulfillment system on Kafka.
type ShipmentStatusChangedMsg struct {
	OrderID        string `json:"orderId"`
	Status         string `json:"status"` // e.g. "SHIPPED", "DELIVERED"
	TrackingNumber string `json:"trackingNumber,omitempty"`
}
