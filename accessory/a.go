// Package accessory implements the accessories of the HAP object model.
package accessory

import (
	"github.com/boundless-engineering/hap/service"

	"net/http"
)

// Info holds the static details of an accessory shown in the
// accessory information service.
type Info struct {
	Name         string
	SerialNumber string
	Manufacturer string
	Model        string
	Firmware     string
}

// A is an accessory: a list of services identified by a stable
// accessory id. Instance ids are assigned to services and
// characteristics in the order they are added.
type A struct {
	Id   uint64
	Type byte
	Info *service.AccessoryInformation
	Ss   []*service.S

	// IdentifyFunc is called when a controller identifies the accessory.
	IdentifyFunc func(*http.Request)

	idc uint64
}

// New returns an accessory of the given type which advertises the
// values in info through the accessory information service.
func New(info Info, typ byte) *A {
	a := &A{
		Type: typ,
		idc:  1,
	}

	a.Info = service.NewAccessoryInformation()
	a.Info.Name.SetValue(info.Name)
	a.Info.SerialNumber.SetValue(info.SerialNumber)
	a.Info.Manufacturer.SetValue(info.Manufacturer)
	a.Info.Model.SetValue(info.Model)
	if len(info.Firmware) > 0 {
		a.Info.FirmwareRevision.SetValue(info.Firmware)
	} else {
		a.Info.FirmwareRevision.SetValue("1.0.0")
	}
	a.AddS(a.Info.S)

	a.Info.Identify.OnValueRemoteUpdate(func(v bool) {
		a.Identify()
	})

	return a
}

// AddS adds a service to the accessory and assigns instance ids to the
// service and its characteristics.
func (a *A) AddS(s *service.S) {
	s.Id = a.idc
	a.idc++
	for _, c := range s.Cs {
		c.Id = a.idc
		a.idc++
	}
	a.Ss = append(a.Ss, s)
}

// Name returns the name of the accessory.
func (a *A) Name() string {
	return a.Info.Name.Value()
}

// Identify calls the identify function, if set.
func (a *A) Identify() {
	if a.IdentifyFunc != nil {
		a.IdentifyFunc(nil)
	}
}
