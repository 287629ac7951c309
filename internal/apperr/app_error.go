package apperr

import "github.com/tuanvumaihuynh/shop-simulator/pkg/zerror"

const (
	ValidationErrorCode   = "VALIDATION_FAILED"
	RouteNotFoundCode     = "ROUTE_NOT_FOUND"
	ProductNotFoundCode   = "PRODUCT_NOT_FOUND"
	OutOfStockCode        = "OUT_OF_STOCK"
	InsufficientStockCode = "INSUFFICIENT_STOCK"
	InsufficientFundsCode = "INSUFFICIENT_FUNDS"
	EmptyCatalogCode      = "EMPTY_CATALOG"
	SimulatorStoppedCode  = "SIMULATOR_STOPPED"
	InvalidQuantityCode   = "INVALID_QUANTITY"
)

var (
	ValidationErr    = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	RouteNotFoundErr = zerror.NewNotFound(RouteNotFoundCode, "route not found")

	ProductNotFoundErr   = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	OutOfStockErr        = zerror.NewUnprocessableEntity(OutOfStockCode, "product is out of stock")
	InsufficientStockErr = zerror.NewUnprocessableEntity(InsufficientStockCode, "purchase would deplete stock")
	InsufficientFundsErr = zerror.NewUnprocessableEntity(InsufficientFundsCode, "replenishment cost exceeds cash balance")
	InvalidQuantityErr   = zerror.NewBadRequest(InvalidQuantityCode, "quantity must be positive")
	EmptyCatalogErr      = zerror.NewUnprocessableEntity(EmptyCatalogCode, "catalog has no products")
	SimulatorStoppedErr  = zerror.NewServiceUnavailable(SimulatorStoppedCode, "simulator is shutting down")
)
