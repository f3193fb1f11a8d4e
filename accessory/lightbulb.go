package accessory

import "github.com/boundless-engineering/hap/service"

// Lightbulb is an accessory with a single lightbulb service.
type Lightbulb struct {
	*A
	Lightbulb *service.Lightbulb
}

// NewLightbulb returns a lightbulb accessory.
func NewLightbulb(info Info) *Lightbulb {
	a := Lightbulb{}
	a.A = New(info, TypeLightbulb)
	a.Lightbulb = service.NewLightbulb()
	a.AddS(a.Lightbulb.S)

	return &a
}
