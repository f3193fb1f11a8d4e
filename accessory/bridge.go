package accessory

import "github.com/boundless-engineering/hap/service"

// Bridge is the first accessory of a server hosting several accessories.
type Bridge struct {
	*A
}

// NewBridge returns a bridge accessory.
func NewBridge(info Info) *Bridge {
	a := Bridge{}
	a.A = New(info, TypeBridge)

	protocol := service.NewHAPProtocolInformation()
	protocol.Version.SetValue("1.1.0")
	a.AddS(protocol.S)

	return &a
}
