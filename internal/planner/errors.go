package planner

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownMunicipalityError is returned when a route names municipalities
// missing from the catalog
type UnknownMunicipalityError struct {
	IDs []int64
}

func (e *UnknownMunicipalityError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("unknown municipalities: %s", strings.Join(ids, ", "))
}
