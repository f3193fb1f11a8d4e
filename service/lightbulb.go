// THIS FILE IS AUTO-GENERATED
package service

import "github.com/boundless-engineering/hap/characteristic"

const TypeLightbulb = "43"

type Lightbulb struct {
	*S

	On         *characteristic.On
	Brightness *characteristic.Brightness
}

func NewLightbulb() *Lightbulb {
	s := Lightbulb{}
	s.S = New(TypeLightbulb)

	s.On = characteristic.NewOn()
	s.AddC(s.On.C)

	s.Brightness = characteristic.NewBrightness()
	s.AddC(s.Brightness.C)

	return &s
}
