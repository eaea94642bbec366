package service

import (
	"regexp"
	"strings"

	"inventory-service/internal/models"
)

// Boundary validation happens at the client, but the engine re-validates
// everything here: the client is untrusted.
var (
	customerNameRe  = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)
	customerPhoneRe = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

func validateSaleRequest(req *RecordSaleRequest) error {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return &models.InvalidInputError{Field: "customer_name", Reason: "required"}
	}
	if !customerNameRe.MatchString(name) {
		return &models.InvalidInputError{Field: "customer_name", Reason: "letters and spaces only"}
	}

	if !customerPhoneRe.MatchString(req.CustomerPhone) {
		return &models.InvalidInputError{Field: "customer_phone", Reason: "must be 10 digits starting with 6-9"}
	}

	if len(req.Items) == 0 {
		return &models.InvalidInputError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return &models.InvalidInputError{Field: "items", Reason: "product_id is required"}
		}
		if item.Quantity <= 0 {
			return &models.InvalidInputError{Field: "items", Reason: "quantity must be a positive integer"}
		}
	}
	return nil
}

func validateCreateOrderRequest(req *CreateOrderRequest) error {
	if strings.TrimSpace(req.ProductName) == "" {
		return &models.InvalidInputError{Field: "product_name", Reason: "required"}
	}
	if req.Quantity <= 0 {
		return &models.InvalidInputError{Field: "quantity", Reason: "must be a positive integer"}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return &models.InvalidInputError{Field: "shipping_address", Reason: "required"}
	}
	return nil
}
