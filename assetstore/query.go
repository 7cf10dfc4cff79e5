package assetstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/assetstore/internal/metrics"
	"github.com/arthur-debert/assetstore/types"
)

// QueryOptions controls sorting and pagination.
type QueryOptions struct {
	// Sort orders results. Identity ascending is always the final
	// tiebreaker, and the only order when Sort is empty.
	Sort []types.SortOrder
	// Page is 1-based. Values below 1 mean the first page.
	Page int
	// PageSize of zero or less returns every match.
	PageSize int
}

// QueryResult is one page of matches.
type QueryResult struct {
	Records  []types.Record
	Total    int
	Page     int
	PageSize int
}

// Pages is the number of pages needed for Total matches.
func (r QueryResult) Pages() int {
	if r.PageSize <= 0 {
		if r.Total == 0 {
			return 0
		}
		return 1
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// Execute runs pred and returns one page of records with the total match
// count, which comes from a separate COUNT query.
func (s *Store) Execute(ctx context.Context, pred Predicate, opts QueryOptions) (QueryResult, error) {
	if pred.SQL == "" {
		pred = MatchAll()
	}
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return QueryResult{}, err
	}
	orderBy, err := s.orderBy(cs, opts.Sort)
	if err != nil {
		return QueryResult{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	result := QueryResult{Page: page, PageSize: opts.PageSize}

	start := time.Now()
	countSQL, countArgs, err := s.sqlBuilder.buildSelectCount(s.table, pred.live())
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to build count query: %w", err)
	}
	s.logQuery("count", countSQL, countArgs)
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&result.Total); err != nil {
		return QueryResult{}, fmt.Errorf("failed to count records: %w", err)
	}
	metrics.QueryObserve("count", start)

	var limit, offset uint64
	if opts.PageSize > 0 {
		limit = uint64(opts.PageSize)
		offset = uint64(page-1) * limit
	}

	start = time.Now()
	columns := recordColumns(cs)
	query, args, err := s.sqlBuilder.buildSelect(s.table, columns, pred.live(), orderBy, limit, offset)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to build query: %w", err)
	}
	s.logQuery("select", query, args)

	records, err := s.queryRecords(ctx, s.db, cs, query, args)
	if err != nil {
		return QueryResult{}, err
	}
	metrics.QueryObserve("page", start)

	result.Records = records
	return result, nil
}

// Search builds a filter from clauses and executes it.
func (s *Store) Search(ctx context.Context, clauses []types.FilterClause, mode types.LogicMode, opts QueryOptions) (QueryResult, error) {
	pred, err := s.BuildFilter(ctx, clauses, mode)
	if err != nil {
		return QueryResult{}, err
	}
	return s.Execute(ctx, pred, opts)
}

// DistinctValues returns the sorted non-empty values of field across
// non-deleted records, for populating dropdowns.
func (s *Store) DistinctValues(ctx context.Context, field string) ([]string, error) {
	cs, err := s.loadColumns(ctx, s.db)
	if err != nil {
		return nil, err
	}
	col, ok := cs.resolve(field)
	if !ok {
		return nil, &types.UnknownFieldError{Field: field}
	}
	ident := quoteIdent(col)
	query, args, err := s.sqlBuilder.sq.
		Select("DISTINCT " + ident).
		From(quoteIdent(s.table)).
		Where(notDeleted).
		Where(fmt.Sprintf("%s IS NOT NULL AND TRIM(%s) <> ''", ident, ident)).
		OrderBy(ident + " COLLATE NOCASE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build distinct query: %w", err)
	}
	s.logQuery("distinct", query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// orderBy validates sort fields and appends the identity tiebreaker.
func (s *Store) orderBy(cs *columnSet, sort []types.SortOrder) ([]string, error) {
	clauses := make([]string, 0, len(sort)+1)
	for _, o := range sort {
		var expr string
		switch {
		case strings.EqualFold(o.Field, types.ColumnID):
			expr = quoteIdent(types.ColumnID)
		case isSortableSystemColumn(o.Field):
			expr = quoteIdent(strings.ToLower(o.Field))
		default:
			col, ok := cs.resolve(o.Field)
			if !ok {
				return nil, &types.UnknownFieldError{Field: o.Field}
			}
			expr = quoteIdent(col) + " COLLATE NOCASE"
		}
		if o.Descending {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		clauses = append(clauses, expr)
	}
	return append(clauses, quoteIdent(types.ColumnID)+" ASC"), nil
}

func isSortableSystemColumn(name string) bool {
	for _, c := range []string{types.ColumnCreatedDate, types.ColumnModifiedDate, types.ColumnCreatedBy, types.ColumnModifiedBy} {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// recordColumns lists system columns followed by template columns, the
// order scanRecord expects.
func recordColumns(cs *columnSet) []string {
	return append(append([]string(nil), types.SystemColumns...), cs.names...)
}

func (s *Store) queryRecords(ctx context.Context, q queryer, cs *columnSet, query string, args []interface{}) ([]types.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, cs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows, cs *columnSet) (types.Record, error) {
	var (
		rec                   types.Record
		created, modified     string
		isDeleted             int64
		createdBy, modifiedBy sql.NullString
	)
	values := make([]sql.NullString, len(cs.names))
	dest := []interface{}{&rec.ID, &created, &modified, &createdBy, &modifiedBy, &isDeleted}
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}

	rec.CreatedDate = parseTimestamp(created)
	rec.ModifiedDate = parseTimestamp(modified)
	rec.CreatedBy = createdBy.String
	rec.ModifiedBy = modifiedBy.String
	rec.IsDeleted = isDeleted != 0
	rec.Values = make(map[string]string, len(values))
	for i, v := range values {
		if v.Valid {
			rec.Values[cs.names[i]] = v.String
		}
	}
	return rec, nil
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(types.TimestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
