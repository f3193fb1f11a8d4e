package characteristic

import "net/http"

type String struct {
	*C
}

// NewString returns a new characteristic with a string value.
func NewString(typ string) *String {
	c := New()
	c.Type = typ
	c.Format = FormatString
	c.Val = ""

	return &String{c}
}

func (c *String) SetValue(v string) {
	c.C.SetValue(v)
}

func (c *String) Value() string {
	v, _ := c.C.Value().(string)
	return v
}

// OnValueRemoteUpdate registers fn to be called when a controller
// changed the value.
func (c *String) OnValueRemoteUpdate(fn func(v string)) {
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		if req == nil {
			return
		}
		fn(new.(string))
	})
}
