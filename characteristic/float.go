package characteristic

import "net/http"

type Float struct {
	*C
}

// NewFloat returns a new characteristic with a floating point value.
func NewFloat(typ string) *Float {
	c := New()
	c.Type = typ
	c.Format = FormatFloat
	c.Val = 0.0

	return &Float{c}
}

func (c *Float) SetValue(v float64) {
	c.C.SetValue(v)
}

func (c *Float) SetMinValue(v float64) {
	c.MinVal = v
}

func (c *Float) SetMaxValue(v float64) {
	c.MaxVal = v
}

func (c *Float) SetStepValue(v float64) {
	c.StepVal = v
}

func (c *Float) Value() float64 {
	v, _ := c.C.Value().(float64)
	return v
}

// OnValueRemoteUpdate registers fn to be called when a controller
// changed the value.
func (c *Float) OnValueRemoteUpdate(fn func(v float64)) {
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		if req == nil {
			return
		}
		fn(new.(float64))
	})
}
