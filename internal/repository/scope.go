package repository

import (
	"fmt"

	"github.com/dsirine/StretchShop/internal/domain"
)

// scopeByCaller narrows a query to records owned by the caller. Administrators
// see everything; everyone else only their own rows. All caller-scoped lookups
// go through here so the ownership rule lives in exactly one place.
func scopeByCaller(query string, args []any, caller domain.Caller, ownerColumn string) (string, []any) {
	if caller.Admin {
		return query, args
	}
	args = append(args, caller.UserID)
	return fmt.Sprintf("%s AND %s = $%d", query, ownerColumn, len(args)), args
}
