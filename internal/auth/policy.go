package auth

import (
	"fmt"

	"inventory-service/internal/models"
)

// Action identifies an operation submitted to the authorization policy.
type Action string

const (
	ActionRecordSale   Action = "sale:record"
	ActionViewBill     Action = "bill:view"
	ActionListAllBills Action = "bill:list_all"

	ActionCreateOrder   Action = "purchase_order:create"
	ActionViewOrder     Action = "purchase_order:view"
	ActionReviewOrder   Action = "purchase_order:review" // approve / reject / send to seller
	ActionCancelOrder   Action = "purchase_order:cancel"
	ActionListAllOrders Action = "purchase_order:list_all"
)

// Resource describes the entity an action targets. OwnerID is zero when the
// action has no owned target.
type Resource struct {
	OwnerID int64
}

// Authorize is the single policy decision point consulted by every engine
// operation. Role and ownership rules live here and nowhere else.
func Authorize(actor Actor, action Action, res Resource) error {
	if actor.UserID == 0 {
		return fmt.Errorf("%w: missing actor identity", models.ErrUnauthorized)
	}

	switch action {
	case ActionRecordSale, ActionCreateOrder:
		// any authenticated user
		return nil

	case ActionViewBill, ActionViewOrder:
		if actor.IsAdmin() || actor.UserID == res.OwnerID {
			return nil
		}

	case ActionListAllBills, ActionListAllOrders, ActionReviewOrder:
		if actor.IsAdmin() {
			return nil
		}

	case ActionCancelOrder:
		// only the order's own creator may cancel
		if actor.UserID == res.OwnerID {
			return nil
		}

	default:
		return fmt.Errorf("%w: unknown action %q", models.ErrForbidden, action)
	}

	return fmt.Errorf("%w: %s", models.ErrForbidden, action)
}
