package characteristic

import "net/http"

type Bytes struct {
	*C
}

// NewBytes returns a new characteristic with a byte value,
// used for the tlv8 and data formats.
func NewBytes(typ string) *Bytes {
	c := New()
	c.Type = typ
	c.Format = FormatData
	c.Val = []byte{}

	return &Bytes{c}
}

func (c *Bytes) SetValue(v []byte) {
	c.C.SetValue(v)
}

func (c *Bytes) Value() []byte {
	v, _ := c.C.Value().([]byte)
	return v
}

// OnValueRemoteUpdate registers fn to be called when a controller
// changed the value.
func (c *Bytes) OnValueRemoteUpdate(fn func(v []byte)) {
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		if req == nil {
			return
		}
		fn(new.([]byte))
	})
}
