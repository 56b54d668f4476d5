package result

import "context"

type Repo interface {
	Insert(ctx context.Context, r *Result) error
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*Result, error)
}
