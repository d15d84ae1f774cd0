package services

// Viewer identifies the requesting user for data-visibility scoping. Every
// list or single-resource read goes through the scoped-query chokepoint with
// a Viewer attached.
type Viewer struct {
	UserID string
	Role   string
}
