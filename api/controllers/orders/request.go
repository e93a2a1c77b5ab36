package orders

type createOrderRequest struct {
	FulfillmentMethod string   `json:"fulfillment_method" validate:"required,oneof=delivery pickup"`
	StoreID           *string  `json:"store_id,omitempty" validate:"omitempty,uuid"`
	DeliveryAddress   string   `json:"delivery_address,omitempty"`
	Lat               *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng               *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
	PaymentMethod     string   `json:"payment_method" validate:"required,oneof=cod vnpay"`
}

type updateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed processing completed cancelled"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}
