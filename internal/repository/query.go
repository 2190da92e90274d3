package repository

import (
	"fmt"
	"strings"
)

// conditions accumulates AND-ed SQL predicates with positional arguments.
type conditions struct {
	exprs []string
	args  []any
}

// add appends expr, whose single %d verb becomes the placeholder of v.
func (c *conditions) add(expr string, v any) {
	c.args = append(c.args, v)
	c.exprs = append(c.exprs, fmt.Sprintf(expr, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.exprs) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.exprs, " AND ")
}
