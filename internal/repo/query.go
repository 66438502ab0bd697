package repo

import (
	"context"
)

// RunSelect executes an already-vetted SELECT statement and returns the
// result set as one map per row. Column order is not preserved; callers
// that need it should read Columns from a prepared query instead.
func (r Repo) RunSelect(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var res []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		res = append(res, row)
	}
	return res, rows.Err()
}
