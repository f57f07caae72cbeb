package orders

const (
	TopicOrderPlaced    = "order.placed"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderFulfilled = "order.fulfilled"
)

// Partition key = order_id so one order's events stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
