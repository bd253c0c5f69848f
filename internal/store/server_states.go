package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ServerStateStore handles server state database operations
type ServerStateStore struct {
	db Querier
}

const serverStateSelect = `
	SELECT s.id, s.begin_time, s.end_time, s.instance_id, s.instance_name,
		f.id, f.name, s.status, u.id, u.name
	FROM accounting_serverstate s
	JOIN resources_flavor f ON f.id = s.flavor_id
	JOIN user_user u ON u.id = s.user_id
`

func scanServerState(row pgx.Row) (*types.ServerState, error) {
	var state types.ServerState
	err := row.Scan(
		&state.ID,
		&state.Begin,
		&state.End,
		&state.InstanceID,
		&state.InstanceName,
		&state.Flavor,
		&state.FlavorName,
		&state.Status,
		&state.User,
		&state.Username,
	)
	if err != nil {
		return nil, err
	}
	state.Begin = state.Begin.UTC()
	if state.End != nil {
		end := state.End.UTC()
		state.End = &end
	}
	return &state, nil
}

// filterConditions turns a state filter into SQL conditions, numbering
// placeholders after the given args
func filterConditions(f accounting.StateFilter, args []any) ([]string, []any) {
	var conds []string
	if f.Server != nil {
		args = append(args, *f.Server)
		conds = append(conds, fmt.Sprintf("s.instance_id = $%d", len(args)))
	}
	if f.User != nil {
		args = append(args, *f.User)
		conds = append(conds, fmt.Sprintf("s.user_id = $%d", len(args)))
	}
	if f.Project != nil {
		args = append(args, *f.Project)
		conds = append(conds, fmt.Sprintf("u.project_id = $%d", len(args)))
	}
	return conds, args
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ") + "\n"
}

func (s *ServerStateStore) list(ctx context.Context, query string, args ...any) ([]types.ServerState, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := []types.ServerState{}
	for rows.Next() {
		state, err := scanServerState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

// ListInPeriod retrieves the states matching f that overlap [begin, end)
func (s *ServerStateStore) ListInPeriod(ctx context.Context, f accounting.StateFilter, begin, end time.Time) ([]types.ServerState, error) {
	args := []any{begin, end}
	conds := []string{"(s.end_time IS NULL OR s.end_time > $1)", "s.begin_time < $2"}
	more, args := filterConditions(f, args)
	conds = append(conds, more...)

	states, err := s.list(ctx, serverStateSelect+where(conds)+`ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list server states in period: %w", err)
	}
	return states, nil
}

// ListUnfinished retrieves the open states matching f
func (s *ServerStateStore) ListUnfinished(ctx context.Context, f accounting.StateFilter) ([]types.ServerState, error) {
	conds, args := filterConditions(f, nil)
	conds = append([]string{"s.end_time IS NULL"}, conds...)

	states, err := s.list(ctx, serverStateSelect+where(conds)+`ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list unfinished server states: %w", err)
	}
	return states, nil
}

// Latest retrieves the newest state of a server
func (s *ServerStateStore) Latest(ctx context.Context, instanceID uuid.UUID) (*types.ServerState, error) {
	query := serverStateSelect + `WHERE s.instance_id = $1 ORDER BY s.begin_time DESC, s.id DESC LIMIT 1`

	state, err := scanServerState(s.db.QueryRow(ctx, query, instanceID))
	if err != nil {
		return nil, fmt.Errorf("get latest server state: %w", notFound(err))
	}
	return state, nil
}

// Create inserts a server state and sets its ID
func (s *ServerStateStore) Create(ctx context.Context, state *types.ServerState) error {
	query := `
		INSERT INTO accounting_serverstate (
			begin_time, end_time, instance_id, instance_name, flavor_id, status, user_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		state.Begin,
		state.End,
		state.InstanceID,
		state.InstanceName,
		state.Flavor,
		state.Status,
		state.User,
	).Scan(&state.ID)
	if err != nil {
		return fmt.Errorf("create server state: %w", err)
	}
	return nil
}
