package outbox

const (
	EventOrderVerified     = "order.verified"
	EventOrderMirrorFailed = "order.mirror_failed"

	AggregateVerifiedOrder = "verified_order"
)
