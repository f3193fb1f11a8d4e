package characteristic

import "net/http"

type Bool struct {
	*C
}

// NewBool returns a new characteristic with a boolean value.
func NewBool(typ string) *Bool {
	c := New()
	c.Type = typ
	c.Format = FormatBool
	c.Val = false

	return &Bool{c}
}

func (c *Bool) SetValue(v bool) {
	c.C.SetValue(v)
}

func (c *Bool) Value() bool {
	v, _ := c.C.Value().(bool)
	return v
}

// OnValueRemoteUpdate registers fn to be called when a controller
// changed the value.
func (c *Bool) OnValueRemoteUpdate(fn func(v bool)) {
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		if req == nil {
			return
		}
		fn(new.(bool))
	})
}
