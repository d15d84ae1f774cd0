package realtime

// Streams exposed to back-office clients.
const (
	StreamNotifications = "notifications"
	StreamOrders        = "orders"
)

// KnownStreams lists every stream the hub accepts subscriptions for.
func KnownStreams() []string {
	return []string{StreamNotifications, StreamOrders}
}
