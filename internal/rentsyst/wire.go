package rentsyst

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/manishonc/car-rental/internal/core"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type vehicleOption struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type vehicleDoc struct {
	ID           flexString `json:"id"`
	Year         int        `json:"year"`
	Seats        int        `json:"number_seats"`
	Doors        int        `json:"number_doors"`
	LargeBags    int        `json:"large_bags"`
	SmallBags    int        `json:"small_bags"`
	Brand        string     `json:"brand"`
	Mark         string     `json:"mark"`
	Group        string     `json:"group"`
	Type         string     `json:"type"`
	BodyType     string     `json:"body_type"`
	Currency     string     `json:"currency"`
	Fuel         string     `json:"fuel"`
	Transmission string     `json:"transmission"`
	Thumbnail    string     `json:"thumbnail"`
	TotalPrice   flexString `json:"total_price"`
	CountDays    int        `json:"count_days"`
	PriceTariff  struct {
		Day flexString `json:"day"`
	} `json:"price_tariff"`
	Options []vehicleOption `json:"options"`
}

func (d vehicleDoc) toCore() core.Vehicle {
	v := core.Vehicle{
		ID:           string(d.ID),
		Brand:        d.Brand,
		Mark:         d.Mark,
		Group:        d.Group,
		Year:         d.Year,
		Type:         d.Type,
		BodyType:     d.BodyType,
		Seats:        d.Seats,
		Doors:        d.Doors,
		LargeBags:    d.LargeBags,
		SmallBags:    d.SmallBags,
		Transmission: d.Transmission,
		Fuel:         d.Fuel,
		PricePerDay:  string(d.PriceTariff.Day),
		TotalPrice:   string(d.TotalPrice),
		Currency:     d.Currency,
		CountDays:    d.CountDays,
		Thumbnail:    d.Thumbnail,
	}
	for _, o := range d.Options {
		v.Options = append(v.Options, o.Name)
	}
	return v
}

type searchResponse struct {
	Vehicles   []vehicleDoc    `json:"vehicles"`
	Pagination core.Pagination `json:"pagination"`
}

type companySettings struct {
	Currency  string          `json:"currency"`
	Locations []core.Location `json:"locations"`
}

type createOrderBody struct {
	VehicleID      any    `json:"vehicle_id"`
	DateFrom       string `json:"date_from"`
	DateTo         string `json:"date_to"`
	PickupLocation any    `json:"pickup_location"`
	ReturnLocation any    `json:"return_location"`
}

type createOrderResponse struct {
	ID      flexString `json:"id"`
	OrderID flexString `json:"order_id"`
}

type updateOrderBody struct {
	Insurance int `json:"insurance"`
}

type confirmOrderBody struct {
	Drivers       []core.Driver `json:"drivers"`
	PaymentMethod string        `json:"payment_method"`
}

type confirmOrderResponse struct {
	PaymentLink  string     `json:"payment_link"`
	Status       string     `json:"status"`
	PaymentID    flexString `json:"payment_id"`
	UniqueNumber flexString `json:"unique_number"`
}

type uploadResponse struct {
	Status string `json:"status"`
	ID     int    `json:"id"`
	URL    string `json:"url"`
}

// numericOrString sends numeric ids as JSON numbers, anything else verbatim.
func numericOrString(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
