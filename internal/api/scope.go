package api

import "github.com/erazemk/preskrba/internal/model"

// scopeLocation narrows a listing to what the actor may see. Managers see any
// location (0 meaning all); everyone else sees only their home branch. It
// reports false when the actor asked for a location outside their scope.
func scopeLocation(a model.Actor, requested int64) (int64, bool) {
	if model.RoleAtLeast(a.Role, model.RoleManager) {
		return requested, true
	}
	if a.LocationID == nil {
		return 0, false
	}
	if requested != 0 && requested != *a.LocationID {
		return 0, false
	}
	return *a.LocationID, true
}

// canViewStock reports whether the actor may read a location's stock.
// Central stock is visible to everyone.
func canViewStock(a model.Actor, loc *model.Location) bool {
	return loc.Type == model.LocationTypeWarehouse || a.ActsFor(loc.ID)
}
