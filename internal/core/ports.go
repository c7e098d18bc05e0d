package core

import "context"

type SearchQuery struct {
	DateFrom       string
	DateTo         string
	PickupLocation string
	ReturnLocation string
	Page           int
	PerPage        int
}

type SearchResult struct {
	Vehicles   []Vehicle  `json:"vehicles"`
	Pagination Pagination `json:"pagination"`
}

type CreateOrderRequest struct {
	VehicleID      string
	DateFrom       string
	DateTo         string
	PickupLocation string
	ReturnLocation string
}

type ConfirmResult struct {
	PaymentID    string `json:"payment_id"`
	PaymentLink  string `json:"payment_link"`
	Status       string `json:"status"`
	UniqueNumber string `json:"unique_number"`
}

type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type FileUploadResult struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// OrderAPI is the remote booking backend. Implementations wrap transport
// failures with ErrUpstream.
type OrderAPI interface {
	SearchVehicles(ctx context.Context, q SearchQuery) (SearchResult, error)
	GetLocations(ctx context.Context) ([]Location, error)
	GetCountries(ctx context.Context, lang string) ([]Country, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error)
	UpdateOrder(ctx context.Context, orderID string, insuranceID int) error
	ConfirmOrder(ctx context.Context, orderID string, drivers []Driver, method PaymentMethod) (ConfirmResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	UploadFile(ctx context.Context, f FileUpload) (FileUploadResult, error)
}
