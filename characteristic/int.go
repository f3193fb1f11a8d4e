package characteristic

import "net/http"

type Int struct {
	*C
}

// NewInt returns a new characteristic with an integer value.
func NewInt(typ string) *Int {
	c := New()
	c.Type = typ
	c.Format = FormatInt32
	c.Val = 0

	return &Int{c}
}

func (c *Int) SetValue(v int) {
	c.C.SetValue(v)
}

func (c *Int) SetMinValue(v int) {
	c.MinVal = v
}

func (c *Int) SetMaxValue(v int) {
	c.MaxVal = v
}

func (c *Int) SetStepValue(v int) {
	c.StepVal = v
}

func (c *Int) Value() int {
	v, _ := c.C.Value().(int)
	return v
}

func (c *Int) MinValue() int {
	v, _ := c.MinVal.(int)
	return v
}

func (c *Int) MaxValue() int {
	v, _ := c.MaxVal.(int)
	return v
}

// OnValueRemoteUpdate registers fn to be called when a controller
// changed the value.
func (c *Int) OnValueRemoteUpdate(fn func(v int)) {
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		if req == nil {
			return
		}
		fn(new.(int))
	})
}
