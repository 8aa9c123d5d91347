package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/faunalens/faunalens/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchKNN runs a K-nearest-neighbors query over a vector index.
//
// Query shape: (filter)=>[KNN k @embedding $BLOB AS __vector_score]
// where filter is the conjunction of tag filters or * when none apply.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("index name is required")}
	}
	if q.K <= 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("k must be positive, got %d", q.K)}
	}
	if len(q.Vector) == 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("vector is required")}
	}

	filter := buildFilter(q.Filters)
	query := fmt.Sprintf("(%s)=>[KNN %d @embedding $BLOB AS %s]", filter, q.K, vectorScoreField)

	args := []string{query,
		"PARAMS", "2", "BLOB", rueidis.BinaryString(vectorToBytes(q.Vector)),
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
	}
	if len(q.ReturnFields) > 0 {
		ret := make([]string, 0, len(q.ReturnFields)+1)
		ret = append(ret, q.ReturnFields...)
		ret = append(ret, vectorScoreField)
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Keys(q.IndexName).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, q.RawScores)
}

// SearchList runs a non-vector query with pagination, used for listing
// documents by tag or with the match-all query.
func (s *Store) SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error) {
	args := []string{query, "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit)}
	if len(fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Keys(index).Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, true)
}

// SearchCount returns only the total number of documents matching a query.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Keys(index).
		Args(query, "LIMIT", "0", "0", "DIALECT", "2").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("empty reply")}
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}
	return int(total), nil
}

// buildFilter renders tag filters as a conjunctive RediSearch expression.
// No filters means match-all.
func buildFilter(filters []db.TagFilter) string {
	if len(filters) == 0 {
		return "*"
	}

	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if len(f.Values) == 0 {
			continue
		}
		escaped := make([]string, len(f.Values))
		for i, v := range f.Values {
			escaped[i] = tagEscaper.Replace(v)
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", f.Field, strings.Join(escaped, "|")))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// tagEscaper escapes characters with syntactic meaning inside TAG queries.
var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^", "&", "\\&", "*", "\\*",
	"(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ",
)

// parseSearchResult parses the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...].
func parseSearchResult(raw []rueidis.RedisMessage, rawScores bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("empty reply")}
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	result := &db.SearchResult{Total: int(total)}

	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse key at %d: %w", i, err)}
		}

		fields, err := parseFieldPairs(raw[i+1])
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse fields for %s: %w", key, err)}
		}

		entry := db.SearchEntry{Key: key, Fields: fields}
		if scoreStr, ok := fields[vectorScoreField]; ok {
			score, err := strconv.ParseFloat(scoreStr, 64)
			if err != nil {
				return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse score for %s: %w", key, err)}
			}
			if rawScores {
				entry.Score = score
			} else {
				entry.Score = math.Max(0, 1.0-score)
			}
			delete(fields, vectorScoreField)
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// parseFieldPairs parses a flat [field, value, field, value, ...] array.
func parseFieldPairs(msg rueidis.RedisMessage) (map[string]string, error) {
	arr, err := msg.ToArray()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(arr)/2)
	for j := 0; j+1 < len(arr); j += 2 {
		name, err := arr[j].ToString()
		if err != nil {
			return nil, err
		}
		value, err := arr[j+1].ToString()
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}
	return fields, nil
}

// vectorToBytes serializes a float32 slice as little-endian binary,
// the layout FT.SEARCH expects for vector BLOB params.
func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
