// THIS FILE IS AUTO-GENERATED
package service

import "github.com/boundless-engineering/hap/characteristic"

const TypeHAPProtocolInformation = "A2"

type HAPProtocolInformation struct {
	*S

	Version *characteristic.Version
}

func NewHAPProtocolInformation() *HAPProtocolInformation {
	s := HAPProtocolInformation{}
	s.S = New(TypeHAPProtocolInformation)

	s.Version = characteristic.NewVersion()
	s.AddC(s.Version.C)

	return &s
}
