package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
)

// ActivityRepository implements port.ActivityRepository backed by PostgreSQL.
type ActivityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	return &ActivityRepository{exec: exec, builder: newBuilder()}
}

func (r *ActivityRepository) Append(ctx context.Context, activity domain.Activity) error {
	metadata := activity.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}

	stmt, args, err := r.builder.Insert("auth.activities").
		Columns("id", "account_id", "action", "metadata", "ip", "user_agent", "created_at").
		Values(
			activity.ID,
			activity.AccountID,
			string(activity.Action),
			encoded,
			activity.IP,
			activity.UserAgent,
			activity.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
