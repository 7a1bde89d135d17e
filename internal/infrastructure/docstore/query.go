package docstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Apply filters, orders and pages snapshots in memory according to q.
// Backends that cannot express a query natively load the collection and call Apply.
func Apply(snaps []Snapshot, q shared.Query) ([]Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	conds := make([]shared.Condition, len(q.Conditions))
	for i, c := range q.Conditions {
		v, err := Normalize(c.Value)
		if err != nil {
			return nil, err
		}
		conds[i] = shared.Condition{Field: c.Field, Op: c.Op, Value: v}
	}

	out := lo.Filter(snaps, func(s Snapshot, _ int) bool {
		return lo.EveryBy(conds, func(c shared.Condition) bool {
			return matches(s.Data, c)
		})
	})

	if q.OrderBy != "" {
		desc := q.OrderDir == shared.OrderDesc
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := Lookup(out[i].Data, q.OrderBy)
			b, bok := Lookup(out[j].Data, q.OrderBy)
			// documents without the order field sort last
			if !aok || !bok {
				return aok && !bok
			}
			cmp, ok := compare(a, b)
			if !ok {
				cmp = strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Snapshot{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Match reports whether a document satisfies every condition of q
func Match(d Document, q shared.Query) (bool, error) {
	res, err := Apply([]Snapshot{{Data: d}}, shared.Query{Conditions: q.Conditions})
	if err != nil {
		return false, err
	}
	return len(res) == 1, nil
}

func matches(d Document, c shared.Condition) bool {
	v, ok := Lookup(d, c.Field)
	if !ok {
		return false
	}
	switch c.Op {
	case shared.OpEqual:
		return equal(v, c.Value)
	case shared.OpNotEqual:
		return !equal(v, c.Value)
	case shared.OpIn:
		list, isList := c.Value.([]any)
		return isList && lo.ContainsBy(list, func(item any) bool { return equal(v, item) })
	}

	cmp, ok := compare(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case shared.OpLess:
		return cmp < 0
	case shared.OpLessEqual:
		return cmp <= 0
	case shared.OpGreater:
		return cmp > 0
	case shared.OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compare orders two normalized values of the same kind. Strings compare as
// timestamps when both parse as RFC3339, as decimals when both parse as numbers,
// and lexically otherwise.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		if at, err := time.Parse(time.RFC3339Nano, av); err == nil {
			if bt, err := time.Parse(time.RFC3339Nano, bv); err == nil {
				return at.Compare(bt), true
			}
		}
		if ad, err := decimal.NewFromString(av); err == nil {
			if bd, err := decimal.NewFromString(bv); err == nil {
				return ad.Cmp(bd), true
			}
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func sortByID(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Key.ID < snaps[j].Key.ID })
}
