package moderation

import "context"

// DuplicateCheck is the duplicate detector output.
type DuplicateCheck struct {
	IsDuplicate bool   `json:"is_duplicate"`
	DuplicateOf *uint  `json:"duplicate_of,omitempty"`
	Method      string `json:"method"`
}

// DuplicateChecker detects listings that repost existing content.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, in Input) (DuplicateCheck, error)
}

// NoopDuplicateChecker never reports a duplicate. It is the default until a similarity
// index exists.
type NoopDuplicateChecker struct{}

// CheckDuplicate always answers "not duplicate".
func (NoopDuplicateChecker) CheckDuplicate(context.Context, Input) (DuplicateCheck, error) {
	return DuplicateCheck{Method: "none"}, nil
}
