package mongo

import (
	"time"

	"github.com/manishonc/car-rental/internal/core"
)

const (
	ColDriverInfo       = "driver_info"
	ColInsuranceOptions = "insurance_options"
)

// DriverInfoDoc is one order's driver list, keyed by order id.
type DriverInfoDoc struct {
	OrderID   string      `bson:"_id"`
	Drivers   []DriverDoc `bson:"drivers"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

type DriverDoc struct {
	FirstName    string   `bson:"first_name"`
	LastName     string   `bson:"last_name"`
	Email        string   `bson:"email"`
	Phone        string   `bson:"phone"`
	Country      string   `bson:"country"`
	Zip          string   `bson:"zip,omitempty"`
	State        string   `bson:"state,omitempty"`
	City         string   `bson:"city"`
	Address      string   `bson:"address"`
	Building     string   `bson:"building,omitempty"`
	Birthday     string   `bson:"birthday"`
	Notes        string   `bson:"notes,omitempty"`
	LicenseNum   string   `bson:"license_num"`
	LicenseFrom  string   `bson:"license_from"`
	LicenseTo    string   `bson:"license_to"`
	Code         string   `bson:"code,omitempty"`
	LicensePhoto []string `bson:"license_photo,omitempty"`
}

func toDriverDoc(d core.Driver) DriverDoc {
	return DriverDoc{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Phone:        d.Phone,
		Country:      d.Country,
		Zip:          d.Zip,
		State:        d.State,
		City:         d.City,
		Address:      d.Address,
		Building:     d.Building,
		Birthday:     d.Birthday,
		Notes:        d.Notes,
		LicenseNum:   d.LicenseNum,
		LicenseFrom:  d.LicenseFrom,
		LicenseTo:    d.LicenseTo,
		Code:         d.Code,
		LicensePhoto: d.LicensePhoto,
	}
}

func fromDriverDoc(d DriverDoc) core.Driver {
	return core.Driver{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Phone:        d.Phone,
		Country:      d.Country,
		Zip:          d.Zip,
		State:        d.State,
		City:         d.City,
		Address:      d.Address,
		Building:     d.Building,
		Birthday:     d.Birthday,
		Notes:        d.Notes,
		LicenseNum:   d.LicenseNum,
		LicenseFrom:  d.LicenseFrom,
		LicenseTo:    d.LicenseTo,
		Code:         d.Code,
		LicensePhoto: d.LicensePhoto,
	}
}

func toDriverInfoDoc(orderID string, drivers []core.Driver, now time.Time) DriverInfoDoc {
	doc := DriverInfoDoc{OrderID: orderID, UpdatedAt: now, Drivers: make([]DriverDoc, len(drivers))}
	for i, d := range drivers {
		doc.Drivers[i] = toDriverDoc(d)
	}
	return doc
}

func fromDriverInfoDoc(doc DriverInfoDoc) []core.Driver {
	out := make([]core.Driver, len(doc.Drivers))
	for i, d := range doc.Drivers {
		out[i] = fromDriverDoc(d)
	}
	return out
}
