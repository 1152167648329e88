package seasondomain

// Status mirrors the persisted season lifecycle for precondition checks.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// CanActivate reports whether a season may move to active. Only drafts can.
func CanActivate(s Status) bool {
	return s == StatusDraft
}

// CanEnd reports whether a season may move to ended. Only active seasons
// can; the transitions are one-directional.
func CanEnd(s Status) bool {
	return s == StatusActive
}
