package accessory

import "github.com/boundless-engineering/hap/service"

// Switch is an accessory with a single switch service.
type Switch struct {
	*A
	Switch *service.Switch
}

// NewSwitch returns a switch accessory.
func NewSwitch(info Info) *Switch {
	a := Switch{}
	a.A = New(info, TypeSwitch)
	a.Switch = service.NewSwitch()
	a.AddS(a.Switch.S)

	return &a
}
